package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/regdesk/circular-cli/internal/collector"
	"github.com/regdesk/circular-cli/internal/pipeline"
	"github.com/regdesk/circular-cli/internal/reader"
	"github.com/regdesk/circular-cli/internal/store"
	anthropicpkg "github.com/regdesk/circular-cli/pkg/anthropic"
)

// pipelineEnv holds the initialized store and pipeline needed by the
// run/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, collector, reader, and classifier, and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, downloadDir string) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rd, err := reader.New(cfg.Reader)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	if cfg.Anthropic.Key == "" {
		_ = st.Close()
		return nil, eris.New("anthropic API key is required (CIRCULAR_ANTHROPIC_KEY)")
	}
	classifier := pipeline.NewAnthropicClassifier(
		anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic)

	rules := pipeline.DefaultRules()
	if path := cfg.Pipeline.AssignmentRulesPath; path != "" {
		rules, err = pipeline.LoadRules(path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Info("assignment rules loaded",
			zap.String("path", path),
			zap.Int("rules", len(rules)))
	}

	col := collector.New(cfg.Source, downloadDir)

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, col, rd, classifier, st, rules),
	}, nil
}
