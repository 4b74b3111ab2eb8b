package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/regdesk/circular-cli/internal/model"
)

func TestContinueAfterScrape(t *testing.T) {
	state := model.NewPipelineState([]int{1}, t.TempDir())
	assert.False(t, ContinueAfterScrape(state), "nil slot must stop the run")

	state.SetScrapeResult(&model.ScrapeResult{PagesProcessed: 1})
	assert.False(t, ContinueAfterScrape(state), "zero downloads must stop the run")

	state = model.NewPipelineState([]int{1}, t.TempDir())
	state.SetScrapeResult(&model.ScrapeResult{DownloadedFiles: 2})
	assert.True(t, ContinueAfterScrape(state))
}

func TestContinueAfterProcess(t *testing.T) {
	state := model.NewPipelineState([]int{1}, t.TempDir())
	assert.False(t, ContinueAfterProcess(state))

	state.SetProcessResult(&model.ProcessResult{TotalFiles: 3, FailedCount: 3})
	assert.False(t, ContinueAfterProcess(state), "all extractions failed")

	state = model.NewPipelineState([]int{1}, t.TempDir())
	state.SetProcessResult(&model.ProcessResult{TotalFiles: 3, ProcessedCount: 1, FailedCount: 2})
	assert.True(t, ContinueAfterProcess(state), "one success is enough")
}

func TestContinueAfterAnalysis(t *testing.T) {
	state := model.NewPipelineState([]int{1}, t.TempDir())
	assert.False(t, ContinueAfterAnalysis(state))

	state.SetAnalysisResult(&model.AnalysisResult{FailedCount: 2})
	assert.False(t, ContinueAfterAnalysis(state))

	state = model.NewPipelineState([]int{1}, t.TempDir())
	state.SetAnalysisResult(&model.AnalysisResult{SuccessfulCount: 1, FailedCount: 1})
	assert.True(t, ContinueAfterAnalysis(state))
}
