package anthropic

import "go.uber.org/zap"

// TokenUsage tracks token consumption across one or more requests.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// modelPricing maps model ID to {input, output} USD per million tokens.
// Cache writes bill at 1.25x input, cache reads at 0.1x.
var modelPricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {1.00, 5.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-1-20250805":   {15.00, 75.00},
}

// EstimateCost returns the estimated USD cost for this usage under the
// given model, or 0 for models without pricing data.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	cost := (float64(u.InputTokens) / 1e6) * pricing[0]
	cost += (float64(u.OutputTokens) / 1e6) * pricing[1]
	cost += (float64(u.CacheCreationInputTokens) / 1e6) * pricing[0] * 1.25
	cost += (float64(u.CacheReadInputTokens) / 1e6) * pricing[0] * 0.1
	return cost
}

// LogCost emits a structured cost attribution line for one phase of work.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
