// Package pipeline orchestrates the staged ingestion of regulatory
// circulars: scrape, process, analyze, optionally persist and assign, then
// finalize. Stages mutate a single PipelineState and never propagate errors
// past their boundary; routing decisions between stages are pure functions
// over the state.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/regdesk/circular-cli/internal/config"
	"github.com/regdesk/circular-cli/internal/model"
	"github.com/regdesk/circular-cli/internal/reader"
	"github.com/regdesk/circular-cli/internal/store"
)

// Collector is the listing-page collaborator used by the Scrape stage.
type Collector interface {
	CollectPage(ctx context.Context, page int) (*model.PageOutcome, error)
	PageDelay() time.Duration
}

// Pipeline wires the stage collaborators together and runs the state
// machine for one run at a time.
type Pipeline struct {
	cfg        *config.Config
	collector  Collector
	reader     reader.Reader
	classifier Classifier
	store      store.Store
	rules      []Rule
	persist    bool
}

// New creates a Pipeline with all dependencies. The store may be nil when
// run bookkeeping is not wanted (tests); collector, reader and classifier
// are required.
func New(
	cfg *config.Config,
	col Collector,
	rd reader.Reader,
	cl Classifier,
	st store.Store,
	rules []Rule,
) *Pipeline {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Pipeline{
		cfg:        cfg,
		collector:  col,
		reader:     rd,
		classifier: cl,
		store:      st,
		rules:      rules,
		persist:    cfg.Pipeline.Persist,
	}
}

// RunOption adjusts a single run without touching pipeline-wide config.
type RunOption func(*runOptions)

type runOptions struct {
	persist *bool
}

// WithPersist overrides the configured persistence gate for one run.
func WithPersist(v bool) RunOption {
	return func(o *runOptions) { o.persist = &v }
}

// Run executes the full state machine for the given pages and download
// directory. The returned state always carries a completion message with
// the final report; Run returns an error only when the initial run row
// cannot be created.
func (p *Pipeline) Run(ctx context.Context, pages []int, downloadDir string, opts ...RunOption) (*model.PipelineState, error) {
	state := model.NewPipelineState(pages, downloadDir)
	return p.run(ctx, state, opts)
}

// RunWithID executes the state machine reusing an externally allocated run
// id, so a pre-created run row and the state share one identity.
func (p *Pipeline) RunWithID(ctx context.Context, runID string, pages []int, downloadDir string, opts ...RunOption) (*model.PipelineState, error) {
	state := model.NewPipelineState(pages, downloadDir)
	state.RunID = runID
	return p.run(ctx, state, opts)
}

func (p *Pipeline) run(ctx context.Context, state *model.PipelineState, opts []RunOption) (*model.PipelineState, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	persist := p.persist
	if o.persist != nil {
		persist = *o.persist
	}

	log := zap.L().With(zap.String("run_id", state.RunID))
	log.Info("pipeline: starting run", zap.Ints("pages", state.PageNumbers))

	if err := p.ensureRunRow(ctx, state); err != nil {
		return nil, err
	}

	// Stage transition helper: advance the in-memory state and mirror it
	// onto the run row.
	enter := func(stage model.Stage) {
		state.AdvanceTo(stage)
		p.mirrorStage(ctx, state.RunID, model.RunStatusRunning, stage)
	}

	enter(model.StageScraping)
	p.scrapeStage(ctx, state)

	if ContinueAfterScrape(state) {
		enter(model.StageProcessing)
		p.processStage(ctx, state)
	} else {
		log.Warn("pipeline: no files downloaded, skipping to finalize")
	}

	if ContinueAfterProcess(state) {
		enter(model.StageAnalyzing)
		p.analyzeStage(ctx, state)
	}

	if persist && ContinueAfterAnalysis(state) {
		enter(model.StagePersisting)
		p.persistStage(ctx, state)

		enter(model.StageAssigning)
		p.assignStage(ctx, state)
	}

	p.finalizeStage(ctx, state)

	log.Info("pipeline: run finished",
		zap.String("status", finalStatus(state)),
		zap.Int("errors", len(state.Errors)))

	return state, nil
}

// ensureRunRow creates the run's bookkeeping row unless one already exists
// (the serve surface pre-creates it before handing off the run id).
func (p *Pipeline) ensureRunRow(ctx context.Context, state *model.PipelineState) error {
	if p.store == nil {
		return nil
	}
	if _, err := p.store.GetRun(ctx, state.RunID); err == nil {
		return nil
	}
	if _, err := p.store.CreateRun(ctx, state.RunID, state.PageNumbers, state.DownloadDir); err != nil {
		return eris.Wrap(err, "pipeline: create run")
	}
	return nil
}

func (p *Pipeline) mirrorStage(ctx context.Context, runID string, status model.RunStatus, stage model.Stage) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateRunStage(ctx, runID, status, stage); err != nil {
		zap.L().Warn("pipeline: failed to mirror stage",
			zap.String("run_id", runID),
			zap.String("stage", string(stage)),
			zap.Error(err))
	}
}
