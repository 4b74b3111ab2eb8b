package store

import (
	"context"

	"github.com/regdesk/circular-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// RunStats summarizes the store's contents for monitoring.
type RunStats struct {
	TotalRuns       int                     `json:"total_runs"`
	ByStatus        map[model.RunStatus]int `json:"runs_by_status"`
	Documents       int                     `json:"documents"`
	ActionableItems int                     `json:"actionable_items"`
	Assignments     int                     `json:"assignments"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, id string, pages []int, downloadDir string) (*model.Run, error)
	UpdateRunStage(ctx context.Context, runID string, status model.RunStatus, stage model.Stage) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, errs []string, report *model.FinalReport) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ClearRuns(ctx context.Context) (int, error)

	// Documents
	SaveDocument(ctx context.Context, doc *model.DocumentRecord) error
	SaveActionableItem(ctx context.Context, item *model.ActionableItemRecord) error
	SaveAssignment(ctx context.Context, a *model.AssignmentRecord) error
	ListDocuments(ctx context.Context, runID string) ([]model.DocumentRecord, error)

	// Monitoring
	RunStats(ctx context.Context) (*RunStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
