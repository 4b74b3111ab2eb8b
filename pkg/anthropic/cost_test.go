package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsage_Add(t *testing.T) {
	var total TokenUsage
	total.Add(TokenUsage{InputTokens: 100, OutputTokens: 20})
	total.Add(TokenUsage{InputTokens: 50, CacheCreationInputTokens: 1000, CacheReadInputTokens: 300})

	assert.Equal(t, int64(150), total.InputTokens)
	assert.Equal(t, int64(20), total.OutputTokens)
	assert.Equal(t, int64(1000), total.CacheCreationInputTokens)
	assert.Equal(t, int64(300), total.CacheReadInputTokens)
}

func TestEstimateCost_Haiku(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	// 1M * $1.00 input + 1M * $5.00 output
	assert.InDelta(t, 6.00, usage.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
}

func TestEstimateCost_Sonnet(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.00, usage.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
}

func TestEstimateCost_WithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              500_000,
		OutputTokens:             100_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     300_000,
	}
	// 0.5M * $1.00 + 0.1M * $5.00 + 0.2M * $1.00 * 1.25 + 0.3M * $1.00 * 0.1
	assert.InDelta(t, 1.28, usage.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Equal(t, 0.0, usage.EstimateCost("some-future-model"))
}

func TestEstimateCost_ZeroTokens(t *testing.T) {
	assert.Equal(t, 0.0, TokenUsage{}.EstimateCost("claude-haiku-4-5-20251001"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 100, OutputTokens: 50}.LogCost("claude-haiku-4-5-20251001", "document_analysis")
	})
	assert.NotPanics(t, func() {
		TokenUsage{}.LogCost("some-future-model", "")
	})
}
