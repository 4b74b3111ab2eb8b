package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/regdesk/circular-cli/internal/model"
	"github.com/regdesk/circular-cli/internal/reader"
	"github.com/regdesk/circular-cli/internal/store"
	"github.com/regdesk/circular-cli/pkg/anthropic"
)

// --- Collector Mock ---

type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) CollectPage(ctx context.Context, page int) (*model.PageOutcome, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PageOutcome), args.Error(1)
}

func (m *mockCollector) PageDelay() time.Duration {
	return 0
}

// --- Reader Mock ---

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Extract(ctx context.Context, path string) (*reader.Extraction, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reader.Extraction), args.Error(1)
}

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, docs []ClassifyInput) ([]model.DocumentAnalysis, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentAnalysis), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, id string, pages []int, downloadDir string) (*model.Run, error) {
	args := m.Called(ctx, id, pages, downloadDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStage(ctx context.Context, runID string, status model.RunStatus, stage model.Stage) error {
	args := m.Called(ctx, runID, status, stage)
	return args.Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, errs []string, report *model.FinalReport) error {
	args := m.Called(ctx, runID, status, errs, report)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) ClearRuns(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) SaveDocument(ctx context.Context, doc *model.DocumentRecord) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockStore) SaveActionableItem(ctx context.Context, item *model.ActionableItemRecord) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockStore) SaveAssignment(ctx context.Context, a *model.AssignmentRecord) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockStore) ListDocuments(ctx context.Context, runID string) ([]model.DocumentRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentRecord), args.Error(1)
}

func (m *mockStore) RunStats(ctx context.Context) (*store.RunStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.RunStats), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func (m *mockAnthropicClient) CreateBatch(ctx context.Context, req anthropic.BatchRequest) (*anthropic.BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.BatchResponse), args.Error(1)
}

func (m *mockAnthropicClient) GetBatch(ctx context.Context, batchID string) (*anthropic.BatchResponse, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.BatchResponse), args.Error(1)
}

func (m *mockAnthropicClient) GetBatchResults(ctx context.Context, batchID string) (anthropic.BatchResultIterator, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(anthropic.BatchResultIterator), args.Error(1)
}

// --- Batch Result Iterator Mock ---

type mockBatchResultIterator struct {
	items []anthropic.BatchResultItem
	idx   int
}

func newMockBatchIterator(items []anthropic.BatchResultItem) *mockBatchResultIterator {
	return &mockBatchResultIterator{items: items, idx: -1}
}

func (m *mockBatchResultIterator) Next() bool {
	m.idx++
	return m.idx < len(m.items)
}

func (m *mockBatchResultIterator) Item() anthropic.BatchResultItem {
	return m.items[m.idx]
}

func (m *mockBatchResultIterator) Err() error {
	return nil
}

func (m *mockBatchResultIterator) Close() error {
	return nil
}

// --- Ensure interface compliance ---
var (
	_ Collector                     = (*mockCollector)(nil)
	_ reader.Reader                 = (*mockReader)(nil)
	_ Classifier                    = (*mockClassifier)(nil)
	_ store.Store                   = (*mockStore)(nil)
	_ anthropic.Client              = (*mockAnthropicClient)(nil)
	_ anthropic.BatchResultIterator = (*mockBatchResultIterator)(nil)
)
