// Package anthropic wraps the official anthropic-sdk-go behind a small
// interface and plain request/response types so callers can be tested
// against mocks without touching SDK unions.
package anthropic

import "context"

// Client is the subset of the Anthropic API the document analysis
// pipeline depends on.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
	CreateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)
	GetBatch(ctx context.Context, batchID string) (*BatchResponse, error)
	GetBatchResults(ctx context.Context, batchID string) (BatchResultIterator, error)
}

// BatchResultIterator streams individual results from a completed batch.
// Callers must Close it when done.
type BatchResultIterator interface {
	Next() bool
	Item() BatchResultItem
	Err() error
	Close() error
}

// MessageRequest describes a single CreateMessage call.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

// SystemBlock is one system prompt block, optionally cacheable.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl marks a block as a prompt cache breakpoint.
type CacheControl struct {
	TTL string // "5m" or "1h"
}

// Message is one conversational turn.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is the model's reply to a CreateMessage call.
type MessageResponse struct {
	ID           string
	Model        string
	Content      []ContentBlock
	StopReason   string
	Usage        TokenUsage
	StopSequence string
}

// ContentBlock is one block of response content.
type ContentBlock struct {
	Type string
	Text string
}

// BatchRequest submits many message requests as one batch.
type BatchRequest struct {
	Requests []BatchRequestItem
}

// BatchRequestItem pairs a caller-chosen custom ID with its request.
// Results come back keyed by the same ID.
type BatchRequestItem struct {
	CustomID string
	Params   MessageRequest
}

// BatchResponse reflects the server-side state of a batch.
type BatchResponse struct {
	ID               string
	ProcessingStatus string
	ResultsURL       string
	RequestCounts    RequestCounts
}

// RequestCounts tallies a batch's requests by outcome.
type RequestCounts struct {
	Processing int64
	Succeeded  int64
	Errored    int64
	Canceled   int64
	Expired    int64
}

// BatchResultItem is one per-request result from a finished batch.
// Message is set only when Type is "succeeded".
type BatchResultItem struct {
	CustomID string
	Type     string // "succeeded", "errored", "canceled", "expired"
	Message  *MessageResponse
}
