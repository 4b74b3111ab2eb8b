package anthropic

// BuildCachedSystemBlocks wraps a system prompt in a single block with a
// 1-hour cache breakpoint. Requests that repeat the same prompt, one per
// document in a run, pay the full input cost once and read the cache on
// every request after that.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "1h"},
		},
	}
}
