package monitoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdesk/circular-cli/internal/model"
	"github.com/regdesk/circular-cli/internal/store"
)

// fakeStore implements store.Store for testing.
type fakeStore struct {
	runs     []model.Run
	stats    store.RunStats
	listErr  error
	statsErr error
}

func (f *fakeStore) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	runs := f.runs
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}
	return runs, nil
}

func (f *fakeStore) RunStats(_ context.Context) (*store.RunStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	stats := f.stats
	if stats.ByStatus == nil {
		stats.ByStatus = map[model.RunStatus]int{}
	}
	return &stats, nil
}

// Remaining store methods only satisfy the interface.
func (f *fakeStore) CreateRun(context.Context, string, []int, string) (*model.Run, error) {
	return nil, nil
}
func (f *fakeStore) UpdateRunStage(context.Context, string, model.RunStatus, model.Stage) error {
	return nil
}
func (f *fakeStore) CompleteRun(context.Context, string, model.RunStatus, []string, *model.FinalReport) error {
	return nil
}
func (f *fakeStore) GetRun(context.Context, string) (*model.Run, error)   { return nil, nil }
func (f *fakeStore) ClearRuns(context.Context) (int, error)               { return 0, nil }
func (f *fakeStore) SaveDocument(context.Context, *model.DocumentRecord) error {
	return nil
}
func (f *fakeStore) SaveActionableItem(context.Context, *model.ActionableItemRecord) error {
	return nil
}
func (f *fakeStore) SaveAssignment(context.Context, *model.AssignmentRecord) error { return nil }
func (f *fakeStore) ListDocuments(context.Context, string) ([]model.DocumentRecord, error) {
	return nil, nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func TestCollector_EmptyStore(t *testing.T) {
	c := NewCollector(&fakeStore{})

	snap, err := c.Collect(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.TotalRuns)
	assert.Equal(t, 0, snap.RecentFailed)
	assert.Equal(t, 0.0, snap.RecentFailRate)
	assert.Equal(t, 50, snap.LookbackRuns)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_RunMetrics(t *testing.T) {
	st := &fakeStore{
		stats: store.RunStats{
			TotalRuns: 4,
			ByStatus: map[model.RunStatus]int{
				model.RunStatusComplete: 3,
				model.RunStatusRunning:  1,
			},
			Documents:       12,
			ActionableItems: 30,
			Assignments:     15,
		},
		runs: []model.Run{
			{ID: "1", Status: model.RunStatusComplete,
				Report: &model.FinalReport{FinalStatus: model.FinalStatusSuccess}},
			{ID: "2", Status: model.RunStatusComplete,
				Errors: []string{"scrape: page 3: timeout"},
				Report: &model.FinalReport{FinalStatus: model.FinalStatusWithErrors}},
			{ID: "3", Status: model.RunStatusFailed,
				Errors: []string{"analyze: batch expired", "persist: no store configured"}},
			{ID: "4", Status: model.RunStatusRunning},
		},
	}

	c := NewCollector(st)
	snap, err := c.Collect(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.TotalRuns)
	assert.Equal(t, 3, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsRunning)
	assert.Equal(t, 12, snap.Documents)
	assert.Equal(t, 30, snap.ActionableItems)
	assert.Equal(t, 15, snap.Assignments)

	assert.Equal(t, 4, snap.RecentRuns)
	assert.Equal(t, 3, snap.RecentErrors)
	assert.Equal(t, 2, snap.RecentFailed, "failed run plus degraded completion")
	assert.InDelta(t, 2.0/3.0, snap.RecentFailRate, 0.001, "over finished runs only")
}

func TestCollector_ZeroFinishedRuns(t *testing.T) {
	st := &fakeStore{
		runs: []model.Run{
			{ID: "1", Status: model.RunStatusRunning},
			{ID: "2", Status: model.RunStatusQueued},
		},
	}

	c := NewCollector(st)
	snap, err := c.Collect(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, 0.0, snap.RecentFailRate)
}

func TestCollector_DefaultLookback(t *testing.T) {
	c := NewCollector(&fakeStore{})
	snap, err := c.Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 50, snap.LookbackRuns)
}

func TestCollector_StatsError(t *testing.T) {
	c := NewCollector(&fakeStore{statsErr: assert.AnError})
	_, err := c.Collect(context.Background(), 50)
	assert.Error(t, err)
}
