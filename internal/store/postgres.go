package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/regdesk/circular-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, pages, download_dir, status, current_stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"update_run_stage":  `UPDATE runs SET status = $1, current_stage = $2, updated_at = $3 WHERE id = $4`,
	"complete_run":      `UPDATE runs SET status = $1, current_stage = $2, errors = $3, report = $4, updated_at = $5 WHERE id = $6`,
	"get_run":           `SELECT id, pages, download_dir, status, current_stage, errors, report, created_at, updated_at FROM runs WHERE id = $1`,
	"insert_document":   `INSERT INTO documents (id, run_id, filename, title, summary, department, intermediaries, key_clauses, key_metrics, content_length, analysis_error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"insert_item":       `INSERT INTO actionable_items (id, document_id, title, description, responsible_parties, timeline, priority, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"insert_assignment": `INSERT INTO team_assignments (id, document_id, team, status, priority, assigned_by, reason, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	pages         JSONB NOT NULL,
	download_dir  TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	current_stage TEXT NOT NULL DEFAULT 'initialized',
	errors        JSONB,
	report        JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	filename       TEXT NOT NULL,
	title          TEXT NOT NULL,
	summary        TEXT,
	department     TEXT,
	intermediaries JSONB,
	key_clauses    JSONB,
	key_metrics    JSONB,
	content_length INTEGER NOT NULL DEFAULT 0,
	analysis_error TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS actionable_items (
	id                  TEXT PRIMARY KEY,
	document_id         TEXT NOT NULL REFERENCES documents(id),
	title               TEXT NOT NULL,
	description         TEXT,
	responsible_parties TEXT,
	timeline            TEXT,
	priority            TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS team_assignments (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	team        TEXT NOT NULL,
	status      TEXT NOT NULL,
	priority    TEXT NOT NULL,
	assigned_by TEXT NOT NULL,
	reason      TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id);
CREATE INDEX IF NOT EXISTS idx_documents_department ON documents(department);
CREATE INDEX IF NOT EXISTS idx_items_document_id ON actionable_items(document_id);
CREATE INDEX IF NOT EXISTS idx_assignments_document_id ON team_assignments(document_id);
CREATE INDEX IF NOT EXISTS idx_assignments_team ON team_assignments(team);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, id string, pages []int, downloadDir string) (*model.Run, error) {
	now := time.Now().UTC()

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal pages")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, pages, download_dir, status, current_stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, pagesJSON, downloadDir, string(model.RunStatusQueued),
		string(model.StageInitialized), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:           id,
		Pages:        pages,
		DownloadDir:  downloadDir,
		Status:       model.RunStatusQueued,
		CurrentStage: model.StageInitialized,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) UpdateRunStage(ctx context.Context, runID string, status model.RunStatus, stage model.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, current_stage = $2, updated_at = $3 WHERE id = $4`,
		string(status), string(stage), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run stage %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, errs []string, report *model.FinalReport) error {
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal errors")
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, current_stage = $2, errors = $3, report = $4, updated_at = $5 WHERE id = $6`,
		string(status), string(model.StageFinalized), errsJSON, reportJSON,
		time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, pages, download_dir, status, current_stage, errors, report, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.New("run not found")
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, pages, download_dir, status, current_stage, errors, report, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// ClearRuns removes finished runs together with their documents,
// actionable items and assignments. Children go first; the schema has no
// cascading deletes, so deleting a run with documents would otherwise hit
// the foreign key.
func (s *PostgresStore) ClearRuns(ctx context.Context) (int, error) {
	args := []any{string(model.RunStatusComplete), string(model.RunStatusFailed)}
	for _, query := range []string{
		`DELETE FROM team_assignments WHERE document_id IN (SELECT id FROM documents WHERE run_id IN (SELECT id FROM runs WHERE status IN ($1, $2)))`,
		`DELETE FROM actionable_items WHERE document_id IN (SELECT id FROM documents WHERE run_id IN (SELECT id FROM runs WHERE status IN ($1, $2)))`,
		`DELETE FROM documents WHERE run_id IN (SELECT id FROM runs WHERE status IN ($1, $2))`,
	} {
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return 0, eris.Wrap(err, "postgres: clear run children")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM runs WHERE status IN ($1, $2)`, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear runs")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, doc *model.DocumentRecord) error {
	intermediaries, err := json.Marshal(doc.Intermediaries)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal intermediaries")
	}
	clauses, err := json.Marshal(doc.KeyClauses)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal key clauses")
	}
	metrics, err := json.Marshal(doc.KeyMetrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal key metrics")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, run_id, filename, title, summary, department, intermediaries, key_clauses, key_metrics, content_length, analysis_error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		doc.ID, doc.RunID, doc.Filename, doc.Title, doc.Summary, doc.Department,
		intermediaries, clauses, metrics, doc.ContentLength, doc.AnalysisError, doc.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert document")
}

func (s *PostgresStore) SaveActionableItem(ctx context.Context, item *model.ActionableItemRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO actionable_items (id, document_id, title, description, responsible_parties, timeline, priority, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.DocumentID, item.Title, item.Description,
		item.ResponsibleParties, item.Timeline, item.Priority, item.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert actionable item")
}

func (s *PostgresStore) SaveAssignment(ctx context.Context, a *model.AssignmentRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO team_assignments (id, document_id, team, status, priority, assigned_by, reason, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.DocumentID, a.Team, a.Status, a.Priority, a.AssignedBy, a.Reason, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert assignment")
}

func (s *PostgresStore) ListDocuments(ctx context.Context, runID string) ([]model.DocumentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, filename, title, summary, department, intermediaries, key_clauses, key_metrics, content_length, analysis_error, created_at FROM documents WHERE run_id = $1 ORDER BY created_at, filename`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.DocumentRecord
	for rows.Next() {
		var d model.DocumentRecord
		var intermediaries, clauses, metrics []byte
		var analysisError *string

		err := rows.Scan(&d.ID, &d.RunID, &d.Filename, &d.Title, &d.Summary,
			&d.Department, &intermediaries, &clauses, &metrics,
			&d.ContentLength, &analysisError, &d.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		if len(intermediaries) > 0 {
			if err := json.Unmarshal(intermediaries, &d.Intermediaries); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal intermediaries")
			}
		}
		if len(clauses) > 0 {
			if err := json.Unmarshal(clauses, &d.KeyClauses); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal key clauses")
			}
		}
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &d.KeyMetrics); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal key metrics")
			}
		}
		if analysisError != nil {
			d.AnalysisError = *analysisError
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) RunStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{ByStatus: map[model.RunStatus]int{}}

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: run stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run stats")
		}
		stats.ByStatus[model.RunStatus(status)] = n
		stats.TotalRuns += n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: run stats iterate")
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM documents`, &stats.Documents},
		{`SELECT COUNT(*) FROM actionable_items`, &stats.ActionableItems},
		{`SELECT COUNT(*) FROM team_assignments`, &stats.Assignments},
	}
	for _, c := range counts {
		if err := s.pool.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrap(err, "postgres: count")
		}
	}

	return stats, nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var pagesJSON []byte
	var errsJSON, reportJSON []byte

	err := row.Scan(&r.ID, &pagesJSON, &r.DownloadDir, &r.Status, &r.CurrentStage,
		&errsJSON, &reportJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pagesJSON, &r.Pages); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal pages")
	}
	if len(errsJSON) > 0 {
		if err := json.Unmarshal(errsJSON, &r.Errors); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal errors")
		}
	}
	if len(reportJSON) > 0 && string(reportJSON) != "null" {
		r.Report = &model.FinalReport{}
		if err := json.Unmarshal(reportJSON, r.Report); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal report")
		}
	}
	return &r, nil
}
