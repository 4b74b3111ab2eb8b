package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/regdesk/circular-cli/internal/collector"
	"github.com/regdesk/circular-cli/internal/model"
)

// scrapeStage collects every requested listing page. Per-page failures are
// recorded in the page outcome and the error sequence; the stage itself
// fails only when no pages were requested.
func (p *Pipeline) scrapeStage(ctx context.Context, state *model.PipelineState) {
	origin := string(model.StageScraping)
	state.AddMessage(origin, model.MessageInfo,
		fmt.Sprintf("starting web scraping for %d pages", len(state.PageNumbers)))

	if len(state.PageNumbers) == 0 {
		state.AddError("scrape: no pages requested")
		state.AddMessage(origin, model.MessageError, "no pages requested")
		return
	}

	result := &model.ScrapeResult{PagesRequested: len(state.PageNumbers)}

	for i, page := range state.PageNumbers {
		if i > 0 {
			pause(ctx, p.collector.PageDelay())
		}

		outcome, err := p.collector.CollectPage(ctx, page)
		if err != nil {
			state.AddError(fmt.Sprintf("scrape: page %d: %v", page, err))
			result.FailedPages = append(result.FailedPages, page)
			result.Pages = append(result.Pages, model.PageOutcome{
				PageIndex: page,
				Err:       err.Error(),
			})
			continue
		}

		result.PagesProcessed++
		result.TotalLinks += len(outcome.Links)
		result.DownloadedFiles += len(outcome.Attachments)
		result.Pages = append(result.Pages, *outcome)
	}

	p.writeManifest(state.DownloadDir, result)
	state.SetScrapeResult(result)

	kind := model.MessageSuccess
	if len(result.FailedPages) > 0 {
		kind = model.MessageError
	}
	state.AddMessage(origin, kind,
		fmt.Sprintf("scraping finished: %d/%d pages, %d links, %d files downloaded",
			result.PagesProcessed, result.PagesRequested,
			result.TotalLinks, result.DownloadedFiles))
}

// writeManifest records the scrape outcome next to the downloads. A
// manifest write failure is logged, not recorded as a run error.
func (p *Pipeline) writeManifest(dir string, result *model.ScrapeResult) {
	if result.DownloadedFiles == 0 {
		return
	}
	m := &collector.Manifest{
		GeneratedAt: time.Now().UTC(),
		BaseURL:     p.cfg.Source.BaseURL,
		Pages:       result.Pages,
	}
	if err := collector.WriteManifest(dir, m); err != nil {
		zap.L().Warn("scrape: manifest write failed", zap.Error(err))
	}
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
