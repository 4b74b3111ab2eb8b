package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/regdesk/circular-cli/internal/model"
)

// BuildReport condenses the run state into the final report. Per-stage
// summaries appear only for slots that were written; the report itself is
// always well-formed, whatever shape the run took.
func BuildReport(state *model.PipelineState) *model.FinalReport {
	report := &model.FinalReport{
		RunID:             state.RunID,
		TotalDuration:     time.Since(state.StartedAt).Round(time.Millisecond).String(),
		StagesCompleted:   string(state.CurrentStage),
		ErrorsEncountered: len(state.Errors),
		FinalStatus:       finalStatus(state),
	}

	if r := state.Results.Scrape; r != nil {
		report.Scraping = &model.ScrapingSummary{
			PagesProcessed:  r.PagesProcessed,
			FilesDownloaded: r.DownloadedFiles,
			LinksFound:      r.TotalLinks,
		}
	}
	if r := state.Results.Process; r != nil {
		report.Processing = &model.ProcessingSummary{
			FilesProcessed: r.ProcessedCount,
			TotalFiles:     r.TotalFiles,
		}
	}
	if r := state.Results.Analysis; r != nil {
		report.Analysis = &model.AnalysisSummary{
			DocumentsAnalyzed:  len(r.Documents),
			SuccessfulAnalyses: r.SuccessfulCount,
			FailedAnalyses:     r.FailedCount,
		}
	}
	if r := state.Results.Persist; r != nil {
		summary := &model.PersistenceSummary{DocumentsSaved: r.DocumentsSaved}
		if a := state.Results.Assignment; a != nil {
			summary.AssignmentsCreated = a.AssignmentsCreated
		}
		report.Persistence = summary
	}

	return report
}

func finalStatus(state *model.PipelineState) string {
	if len(state.Errors) > 0 {
		return model.FinalStatusWithErrors
	}
	return model.FinalStatusSuccess
}

// finalizeStage always runs exactly once: it builds the report, appends
// the completion message, and closes out the run row.
func (p *Pipeline) finalizeStage(ctx context.Context, state *model.PipelineState) {
	report := BuildReport(state)
	state.AdvanceTo(model.StageFinalized)

	state.AddCompletion(string(model.StageFinalized),
		fmt.Sprintf("run %s finished with status %s in %s",
			state.RunID, report.FinalStatus, report.TotalDuration),
		report)

	if p.store != nil {
		// A run interrupted by cancellation still ends in a terminal
		// status; the closing write must outlive the canceled context.
		status := model.RunStatusComplete
		if ctx.Err() != nil {
			status = model.RunStatusFailed
		}
		if err := p.store.CompleteRun(context.WithoutCancel(ctx), state.RunID,
			status, state.Errors, report); err != nil {
			// The in-memory report is still authoritative for the caller.
			state.AddMessage(string(model.StageFinalized), model.MessageError,
				fmt.Sprintf("failed to record run completion: %v", err))
		}
	}
}
