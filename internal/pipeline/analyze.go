package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/regdesk/circular-cli/internal/model"
)

// analyzeStage classifies every successfully processed document. Documents
// that failed extraction are skipped; per-document classification failures
// are recorded inside the document record.
func (p *Pipeline) analyzeStage(ctx context.Context, state *model.PipelineState) {
	origin := string(model.StageAnalyzing)

	process := state.Results.Process
	var inputs []ClassifyInput
	if process != nil {
		for _, f := range process.Files {
			if f.Failed() {
				continue
			}
			inputs = append(inputs, ClassifyInput{Filename: f.Filename, Text: f.Text})
		}
	}
	state.AddMessage(origin, model.MessageInfo,
		fmt.Sprintf("analyzing %d documents", len(inputs)))

	if process == nil || process.ProcessedCount == 0 {
		state.AddError("analyze: no processed documents to analyze")
		state.AddMessage(origin, model.MessageError, "no processed documents to analyze")
		return
	}

	docs, err := p.classifier.Classify(ctx, inputs)
	if err != nil {
		state.AddError(fmt.Sprintf("analyze: %v", err))
		state.AddMessage(origin, model.MessageError,
			fmt.Sprintf("document analysis failed: %v", err))
		return
	}

	result := &model.AnalysisResult{
		Documents:  docs,
		AnalyzedAt: time.Now().UTC(),
	}
	for _, d := range docs {
		if d.Failed() {
			result.FailedCount++
		} else {
			result.SuccessfulCount++
		}
	}

	state.SetAnalysisResult(result)

	kind := model.MessageSuccess
	if result.FailedCount > 0 {
		kind = model.MessageError
	}
	state.AddMessage(origin, kind,
		fmt.Sprintf("analysis finished: %d analyzed, %d failed",
			result.SuccessfulCount, result.FailedCount))
}
