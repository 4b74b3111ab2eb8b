package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdesk/circular-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", pgxmock.AnyArg(), "circulars",
			string(model.RunStatusQueued), string(model.StageInitialized),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "run-1", []int{1}, "circulars")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, pages, download_dir, status, current_stage, errors, report, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_Scan(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "pages", "download_dir", "status", "current_stage",
		"errors", "report", "created_at", "updated_at",
	}).AddRow(
		"run-1", []byte(`[1,2]`), "circulars",
		model.RunStatusComplete, model.StageFinalized,
		[]byte(`["scrape: page 2 failed"]`),
		[]byte(`{"run_id":"run-1","final_status":"COMPLETED_WITH_ERRORS"}`),
		now, now,
	)
	mock.ExpectQuery(`SELECT id, pages, download_dir`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, run.Pages)
	assert.Equal(t, []string{"scrape: page 2 failed"}, run.Errors)
	require.NotNil(t, run.Report)
	assert.Equal(t, model.FinalStatusWithErrors, run.Report.FinalStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStage_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs(string(model.RunStatusRunning), string(model.StageScraping),
			pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStage(context.Background(), "missing",
		model.RunStatusRunning, model.StageScraping)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs(string(model.RunStatusComplete), string(model.StageFinalized),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", model.RunStatusComplete,
		nil, &model.FinalReport{RunID: "run-1", FinalStatus: model.FinalStatusSuccess})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDocument(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("doc-1", "run-1", "a.pdf", "title", "summary", "Market Regulation Department",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 100, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveDocument(context.Background(), &model.DocumentRecord{
		ID: "doc-1", RunID: "run-1", Filename: "a.pdf", Title: "title",
		Summary: "summary", Department: "Market Regulation Department",
		ContentLength: 100, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAssignment(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO team_assignments`).
		WithArgs("as-1", "doc-1", "legal_compliance", "ai_suggested", "medium",
			"AI System", "Default assignment for regulatory document", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveAssignment(context.Background(), &model.AssignmentRecord{
		ID: "as-1", DocumentID: "doc-1", Team: "legal_compliance",
		Status: "ai_suggested", Priority: "medium", AssignedBy: "AI System",
		Reason: "Default assignment for regulatory document", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearRuns_DeletesChildrenFirst(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	statuses := []any{string(model.RunStatusComplete), string(model.RunStatusFailed)}

	mock.ExpectExec(`DELETE FROM team_assignments WHERE document_id IN`).
		WithArgs(statuses...).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM actionable_items WHERE document_id IN`).
		WithArgs(statuses...).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`DELETE FROM documents WHERE run_id IN`).
		WithArgs(statuses...).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM runs WHERE status IN`).
		WithArgs(statuses...).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.ClearRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n, "only cleared runs are counted, not their children")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM runs GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("complete", 2).
			AddRow("failed", 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM actionable_items`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM team_assignments`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	stats, err := s.RunStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 2, stats.ByStatus[model.RunStatusComplete])
	assert.Equal(t, 5, stats.Documents)
	assert.Equal(t, 7, stats.ActionableItems)
	assert.Equal(t, 4, stats.Assignments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
