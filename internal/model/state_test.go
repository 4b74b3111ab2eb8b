package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineState_Defaults(t *testing.T) {
	st := NewPipelineState([]int{1, 2}, "downloads")

	assert.Equal(t, []int{1, 2}, st.PageNumbers)
	assert.Equal(t, "downloads", st.DownloadDir)
	assert.NotEmpty(t, st.RunID)
	assert.False(t, st.StartedAt.IsZero())
	assert.Equal(t, StageInitialized, st.CurrentStage)
	assert.Empty(t, st.Errors)
	assert.Empty(t, st.Messages)
}

func TestNewPipelineState_UniqueRunIDs(t *testing.T) {
	a := NewPipelineState([]int{1}, "x")
	b := NewPipelineState([]int{1}, "x")
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestAdvanceTo_ForwardOnly(t *testing.T) {
	st := NewPipelineState([]int{1}, "x")

	assert.True(t, st.AdvanceTo(StageScraping))
	assert.Equal(t, StageScraping, st.CurrentStage)

	assert.True(t, st.AdvanceTo(StageProcessing))
	assert.Equal(t, StageProcessing, st.CurrentStage)

	// Regression is refused and leaves the stage untouched.
	assert.False(t, st.AdvanceTo(StageScraping))
	assert.Equal(t, StageProcessing, st.CurrentStage)

	// Same stage twice is a no-op.
	assert.False(t, st.AdvanceTo(StageProcessing))
	assert.Equal(t, StageProcessing, st.CurrentStage)
}

func TestAdvanceTo_SkipsIntermediateStages(t *testing.T) {
	st := NewPipelineState([]int{1}, "x")

	// Early-exit paths jump straight to finalized.
	assert.True(t, st.AdvanceTo(StageScraping))
	assert.True(t, st.AdvanceTo(StageFinalized))
	assert.Equal(t, StageFinalized, st.CurrentStage)

	assert.False(t, st.AdvanceTo(StageAnalyzing))
	assert.Equal(t, StageFinalized, st.CurrentStage)
}

func TestAdvanceTo_UnknownStage(t *testing.T) {
	st := NewPipelineState([]int{1}, "x")
	assert.False(t, st.AdvanceTo(Stage("bogus")))
	assert.Equal(t, StageInitialized, st.CurrentStage)
}

func TestStageOrdinal(t *testing.T) {
	assert.Equal(t, 0, StageInitialized.Ordinal())
	assert.Equal(t, 6, StageFinalized.Ordinal())
	assert.Equal(t, -1, Stage("bogus").Ordinal())
	assert.Less(t, StageScraping.Ordinal(), StageProcessing.Ordinal())
	assert.Less(t, StagePersisting.Ordinal(), StageAssigning.Ordinal())
}

func TestSlotSetters_WriteOnce(t *testing.T) {
	st := NewPipelineState([]int{1}, "x")

	first := &ScrapeResult{DownloadedFiles: 3}
	assert.True(t, st.SetScrapeResult(first))

	// A second write is refused and the original slot survives.
	assert.False(t, st.SetScrapeResult(&ScrapeResult{DownloadedFiles: 99}))
	assert.Equal(t, 3, st.Results.Scrape.DownloadedFiles)

	assert.True(t, st.SetProcessResult(&ProcessResult{ProcessedCount: 1}))
	assert.False(t, st.SetProcessResult(&ProcessResult{}))

	assert.True(t, st.SetAnalysisResult(&AnalysisResult{}))
	assert.False(t, st.SetAnalysisResult(&AnalysisResult{}))

	assert.True(t, st.SetPersistResult(&PersistResult{}))
	assert.False(t, st.SetPersistResult(&PersistResult{}))

	assert.True(t, st.SetAssignmentResult(&AssignmentResult{}))
	assert.False(t, st.SetAssignmentResult(&AssignmentResult{}))
}

func TestAddMessage_AppendOnlyOrdering(t *testing.T) {
	st := NewPipelineState([]int{1}, "x")

	st.AddMessage("Scrape Stage", MessageInfo, "starting")
	st.AddMessage("Scrape Stage", MessageSuccess, "done")
	st.AddError("something failed")
	st.AddError("something else failed")

	require.Len(t, st.Messages, 2)
	assert.Equal(t, "starting", st.Messages[0].Text)
	assert.Equal(t, "done", st.Messages[1].Text)
	assert.Equal(t, []string{"something failed", "something else failed"}, st.Errors)

	for _, m := range st.Messages {
		assert.False(t, m.Timestamp.IsZero())
	}
}

func TestAddCompletion_CarriesReport(t *testing.T) {
	st := NewPipelineState([]int{1}, "x")

	report := &FinalReport{RunID: st.RunID, FinalStatus: FinalStatusSuccess}
	st.AddCompletion("Orchestrator", "run completed", report)

	require.Len(t, st.Messages, 1)
	last := st.Messages[len(st.Messages)-1]
	assert.Equal(t, MessageCompletion, last.Kind)
	require.NotNil(t, last.Report)
	assert.Equal(t, st.RunID, last.Report.RunID)
}

func TestPipelineState_JSONShape(t *testing.T) {
	st := NewPipelineState([]int{1}, "downloads")
	st.SetScrapeResult(&ScrapeResult{PagesRequested: 1})

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded, "page_numbers")
	assert.Contains(t, decoded, "run_id")
	assert.Contains(t, decoded, "stage_results")

	slots, ok := decoded["stage_results"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, slots, "scrape_result")
	// Absent slots are omitted, not nulled.
	assert.NotContains(t, slots, "process_result")
}

func TestExtractedMetadata_Merge(t *testing.T) {
	fromURL := ExtractedMetadata{CircularDate: "aug 2025", CircularReference: "96052"}
	fromPage := ExtractedMetadata{CircularDate: "14 August, 2025", HasEmbeddedFrame: true}

	merged := fromURL.Merge(fromPage)

	// Page-derived date wins; URL-derived reference survives.
	assert.Equal(t, "14 August, 2025", merged.CircularDate)
	assert.Equal(t, "96052", merged.CircularReference)
	assert.True(t, merged.HasEmbeddedFrame)
}

func TestExtractedMetadata_MergeEmptyOverlay(t *testing.T) {
	base := ExtractedMetadata{CircularDate: "aug 2025", CircularReference: "96052"}
	merged := base.Merge(ExtractedMetadata{})
	assert.Equal(t, base, merged)
}

func TestScrapeResult_AttachmentsFlattening(t *testing.T) {
	r := &ScrapeResult{
		Pages: []PageOutcome{
			{PageIndex: 1, Attachments: []DownloadedAttachment{{LocalPath: "a.pdf"}, {LocalPath: "b.pdf"}}},
			{PageIndex: 2, Attachments: []DownloadedAttachment{{LocalPath: "c.pdf"}}},
		},
	}

	got := r.Attachments()
	require.Len(t, got, 3)
	assert.Equal(t, "a.pdf", got[0].LocalPath)
	assert.Equal(t, "c.pdf", got[2].LocalPath)
}

func TestRunStatus_Finished(t *testing.T) {
	assert.True(t, RunStatusComplete.Finished())
	assert.True(t, RunStatusFailed.Finished())
	assert.False(t, RunStatusQueued.Finished())
	assert.False(t, RunStatusRunning.Finished())
}
