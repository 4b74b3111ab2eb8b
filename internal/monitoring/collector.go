package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/regdesk/circular-cli/internal/model"
	"github.com/regdesk/circular-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of ingestion health.
type MetricsSnapshot struct {
	// Whole-store totals.
	TotalRuns       int `json:"total_runs"`
	RunsComplete    int `json:"runs_complete"`
	RunsFailed      int `json:"runs_failed"`
	RunsRunning     int `json:"runs_running"`
	RunsQueued      int `json:"runs_queued"`
	Documents       int `json:"documents"`
	ActionableItems int `json:"actionable_items"`
	Assignments     int `json:"assignments"`

	// Metrics over the most recent runs (lookback window).
	RecentRuns     int     `json:"recent_runs"`
	RecentFailed   int     `json:"recent_failed"`
	RecentErrors   int     `json:"recent_errors"`
	RecentFailRate float64 `json:"recent_fail_rate"`

	// Metadata.
	LookbackRuns int       `json:"lookback_runs"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given number of most recent runs.
func (c *Collector) Collect(ctx context.Context, lookbackRuns int) (*MetricsSnapshot, error) {
	if lookbackRuns <= 0 {
		lookbackRuns = 50
	}

	snap := &MetricsSnapshot{
		LookbackRuns: lookbackRuns,
		CollectedAt:  time.Now().UTC(),
	}

	stats, err := c.store.RunStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: run stats")
	}
	snap.TotalRuns = stats.TotalRuns
	snap.RunsComplete = stats.ByStatus[model.RunStatusComplete]
	snap.RunsFailed = stats.ByStatus[model.RunStatusFailed]
	snap.RunsRunning = stats.ByStatus[model.RunStatusRunning]
	snap.RunsQueued = stats.ByStatus[model.RunStatusQueued]
	snap.Documents = stats.Documents
	snap.ActionableItems = stats.ActionableItems
	snap.Assignments = stats.Assignments

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: lookbackRuns})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RecentRuns = len(runs)
	var finished int
	for _, r := range runs {
		snap.RecentErrors += len(r.Errors)
		if r.Status.Finished() {
			finished++
		}
		if r.Status == model.RunStatusFailed {
			snap.RecentFailed++
			continue
		}
		// A complete run whose report carries errors still counts toward
		// the failure signal.
		if r.Report != nil && r.Report.FinalStatus == model.FinalStatusWithErrors {
			snap.RecentFailed++
		}
	}
	if finished > 0 {
		snap.RecentFailRate = float64(snap.RecentFailed) / float64(finished)
	}

	return snap, nil
}
