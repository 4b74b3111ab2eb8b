package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/regdesk/circular-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	pages         TEXT NOT NULL,
	download_dir  TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	current_stage TEXT NOT NULL DEFAULT 'initialized',
	errors        TEXT,
	report        TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	filename       TEXT NOT NULL,
	title          TEXT NOT NULL,
	summary        TEXT,
	department     TEXT,
	intermediaries TEXT,
	key_clauses    TEXT,
	key_metrics    TEXT,
	content_length INTEGER NOT NULL DEFAULT 0,
	analysis_error TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS actionable_items (
	id                  TEXT PRIMARY KEY,
	document_id         TEXT NOT NULL REFERENCES documents(id),
	title               TEXT NOT NULL,
	description         TEXT,
	responsible_parties TEXT,
	timeline            TEXT,
	priority            TEXT NOT NULL,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS team_assignments (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	team        TEXT NOT NULL,
	status      TEXT NOT NULL,
	priority    TEXT NOT NULL,
	assigned_by TEXT NOT NULL,
	reason      TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id);
CREATE INDEX IF NOT EXISTS idx_documents_department ON documents(department);
CREATE INDEX IF NOT EXISTS idx_items_document_id ON actionable_items(document_id);
CREATE INDEX IF NOT EXISTS idx_assignments_document_id ON team_assignments(document_id);
CREATE INDEX IF NOT EXISTS idx_assignments_team ON team_assignments(team);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, id string, pages []int, downloadDir string) (*model.Run, error) {
	now := time.Now().UTC()

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal pages")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, pages, download_dir, status, current_stage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(pagesJSON), downloadDir, string(model.RunStatusQueued),
		string(model.StageInitialized), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStage(ctx context.Context, runID string, status model.RunStatus, stage model.Stage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, current_stage = ?, updated_at = ? WHERE id = ?`,
		string(status), string(stage), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run stage %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, errs []string, report *model.FinalReport) error {
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal errors")
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, current_stage = ?, errors = ?, report = ?, updated_at = ? WHERE id = ?`,
		string(status), string(model.StageFinalized), string(errsJSON),
		string(reportJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pages, download_dir, status, current_stage, errors, report, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, pages, download_dir, status, current_stage, errors, report, created_at, updated_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// ClearRuns removes finished runs together with their documents,
// actionable items and assignments. Children go first; the schema has no
// cascading deletes.
func (s *SQLiteStore) ClearRuns(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin clear runs")
	}
	defer tx.Rollback() //nolint:errcheck

	statuses := []any{string(model.RunStatusComplete), string(model.RunStatusFailed)}
	for _, query := range []string{
		`DELETE FROM team_assignments WHERE document_id IN (
			SELECT id FROM documents WHERE run_id IN (SELECT id FROM runs WHERE status IN (?, ?)))`,
		`DELETE FROM actionable_items WHERE document_id IN (
			SELECT id FROM documents WHERE run_id IN (SELECT id FROM runs WHERE status IN (?, ?)))`,
		`DELETE FROM documents WHERE run_id IN (SELECT id FROM runs WHERE status IN (?, ?))`,
	} {
		if _, err := tx.ExecContext(ctx, query, statuses...); err != nil {
			return 0, eris.Wrap(err, "sqlite: clear run children")
		}
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM runs WHERE status IN (?, ?)`, statuses...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear runs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit clear runs")
	}
	return int(n), nil
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *model.DocumentRecord) error {
	intermediaries, err := json.Marshal(doc.Intermediaries)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal intermediaries")
	}
	clauses, err := json.Marshal(doc.KeyClauses)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal key clauses")
	}
	metrics, err := json.Marshal(doc.KeyMetrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal key metrics")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, run_id, filename, title, summary, department,
		   intermediaries, key_clauses, key_metrics, content_length, analysis_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.RunID, doc.Filename, doc.Title, doc.Summary, doc.Department,
		string(intermediaries), string(clauses), string(metrics),
		doc.ContentLength, doc.AnalysisError, doc.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert document")
}

func (s *SQLiteStore) SaveActionableItem(ctx context.Context, item *model.ActionableItemRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actionable_items (id, document_id, title, description,
		   responsible_parties, timeline, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.DocumentID, item.Title, item.Description,
		item.ResponsibleParties, item.Timeline, item.Priority, item.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert actionable item")
}

func (s *SQLiteStore) SaveAssignment(ctx context.Context, a *model.AssignmentRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_assignments (id, document_id, team, status, priority,
		   assigned_by, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DocumentID, a.Team, a.Status, a.Priority, a.AssignedBy, a.Reason, a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert assignment")
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, runID string) ([]model.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, filename, title, summary, department, intermediaries,
		   key_clauses, key_metrics, content_length, analysis_error, created_at
		 FROM documents WHERE run_id = ? ORDER BY created_at, filename`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.DocumentRecord
	for rows.Next() {
		var d model.DocumentRecord
		var intermediaries, clauses, metrics string
		var analysisError sql.NullString

		err := rows.Scan(&d.ID, &d.RunID, &d.Filename, &d.Title, &d.Summary,
			&d.Department, &intermediaries, &clauses, &metrics,
			&d.ContentLength, &analysisError, &d.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		if err := unmarshalStrings(intermediaries, &d.Intermediaries); err != nil {
			return nil, err
		}
		if err := unmarshalStrings(clauses, &d.KeyClauses); err != nil {
			return nil, err
		}
		if err := unmarshalStrings(metrics, &d.KeyMetrics); err != nil {
			return nil, err
		}
		d.AnalysisError = analysisError.String
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) RunStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{ByStatus: map[model.RunStatus]int{}}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run stats")
		}
		stats.ByStatus[model.RunStatus(status)] = n
		stats.TotalRuns += n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: run stats iterate")
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
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrap(err, "sqlite: count")
		}
	}

	return stats, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var pagesJSON string
	var errsJSON, reportJSON sql.NullString

	err := row.Scan(&r.ID, &pagesJSON, &r.DownloadDir, &r.Status, &r.CurrentStage,
		&errsJSON, &reportJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(pagesJSON), &r.Pages); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal pages")
	}
	if errsJSON.Valid {
		if err := json.Unmarshal([]byte(errsJSON.String), &r.Errors); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal errors")
		}
	}
	if reportJSON.Valid && reportJSON.String != "null" {
		r.Report = &model.FinalReport{}
		if err := json.Unmarshal([]byte(reportJSON.String), r.Report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
	}
	return &r, nil
}

func unmarshalStrings(raw string, dest *[]string) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return eris.Wrap(json.Unmarshal([]byte(raw), dest), "sqlite: unmarshal string list")
}
