package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/regdesk/circular-cli/internal/model"
)

// processStage extracts text and tables from every downloaded attachment.
// Per-file failures are recorded inside the file record; the stage fails
// only when its scrape precondition is missing.
func (p *Pipeline) processStage(ctx context.Context, state *model.PipelineState) {
	origin := string(model.StageProcessing)

	scrape := state.Results.Scrape
	var downloaded int
	if scrape != nil {
		downloaded = scrape.DownloadedFiles
	}
	state.AddMessage(origin, model.MessageInfo,
		fmt.Sprintf("processing %d downloaded files", downloaded))

	if scrape == nil || downloaded == 0 {
		state.AddError("process: no downloaded files to process")
		state.AddMessage(origin, model.MessageError, "no downloaded files to process")
		return
	}

	attachments := scrape.Attachments()
	result := &model.ProcessResult{TotalFiles: len(attachments)}

	for _, att := range attachments {
		file := model.ProcessedFile{
			Path:     att.LocalPath,
			Filename: filepath.Base(att.LocalPath),
		}

		extraction, err := p.reader.Extract(ctx, att.LocalPath)
		if err != nil {
			file.Err = err.Error()
			result.FailedCount++
			zap.L().Warn("process: extraction failed",
				zap.String("file", file.Filename),
				zap.Error(err))
		} else {
			file.Text = extraction.Text
			file.Tables = extraction.Tables
			file.TextLength = len(extraction.Text)
			file.TableCount = len(extraction.Tables)
			result.ProcessedCount++
		}

		result.Files = append(result.Files, file)
	}

	state.SetProcessResult(result)

	kind := model.MessageSuccess
	if result.FailedCount > 0 {
		kind = model.MessageError
	}
	state.AddMessage(origin, kind,
		fmt.Sprintf("processing finished: %d/%d files extracted",
			result.ProcessedCount, result.TotalFiles))
}
