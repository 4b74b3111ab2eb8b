package pipeline

import (
	"github.com/regdesk/circular-cli/internal/model"
)

// Routing predicates between stages. Pure functions over the state: a
// missing or empty result slot always routes to stop.

// ContinueAfterScrape reports whether the run should proceed to document
// processing: at least one file must have been downloaded.
func ContinueAfterScrape(state *model.PipelineState) bool {
	r := state.Results.Scrape
	return r != nil && r.DownloadedFiles > 0
}

// ContinueAfterProcess reports whether the run should proceed to analysis:
// at least one file must have been processed successfully.
func ContinueAfterProcess(state *model.PipelineState) bool {
	r := state.Results.Process
	return r != nil && r.ProcessedCount > 0
}

// ContinueAfterAnalysis reports whether the run should proceed to the
// persistence tail: at least one document must have been analyzed without
// error.
func ContinueAfterAnalysis(state *model.PipelineState) bool {
	r := state.Results.Analysis
	return r != nil && r.SuccessfulCount > 0
}
