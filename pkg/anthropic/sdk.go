package anthropic

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/jsonl"
	"github.com/rotisserie/eris"
)

// sdkClient implements Client on top of anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client backed by the official SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}
	if len(req.System) > 0 {
		params.System = toSDKSystemBlocks(req.System)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	return fromSDKMessage(msg), nil
}

func (c *sdkClient) CreateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	items := make([]sdk.MessageBatchNewParamsRequest, len(req.Requests))
	for i, r := range req.Requests {
		items[i] = sdk.MessageBatchNewParamsRequest{
			CustomID: r.CustomID,
			Params: sdk.MessageBatchNewParamsRequestParams{
				Model:     sdk.Model(r.Params.Model),
				MaxTokens: r.Params.MaxTokens,
				Messages:  toSDKMessages(r.Params.Messages),
			},
		}
		if len(r.Params.System) > 0 {
			items[i].Params.System = toSDKSystemBlocks(r.Params.System)
		}
		if r.Params.Temperature != nil {
			items[i].Params.Temperature = sdk.Float(*r.Params.Temperature)
		}
	}

	batch, err := c.client.Messages.Batches.New(ctx, sdk.MessageBatchNewParams{
		Requests: items,
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create batch")
	}
	return fromSDKBatch(batch), nil
}

func (c *sdkClient) GetBatch(ctx context.Context, batchID string) (*BatchResponse, error) {
	batch, err := c.client.Messages.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("anthropic: get batch %s", batchID))
	}
	return fromSDKBatch(batch), nil
}

func (c *sdkClient) GetBatchResults(ctx context.Context, batchID string) (BatchResultIterator, error) {
	stream := c.client.Messages.Batches.ResultsStreaming(ctx, batchID)
	if err := stream.Err(); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("anthropic: get batch results %s", batchID))
	}
	return &sdkBatchResultIterator{stream: stream}, nil
}

// sdkBatchResultIterator adapts the SDK's jsonl result stream.
type sdkBatchResultIterator struct {
	stream *jsonl.Stream[sdk.MessageBatchIndividualResponse]
	item   BatchResultItem
}

func (it *sdkBatchResultIterator) Next() bool {
	if !it.stream.Next() {
		return false
	}
	it.item = fromSDKBatchResult(it.stream.Current())
	return true
}

func (it *sdkBatchResultIterator) Item() BatchResultItem { return it.item }
func (it *sdkBatchResultIterator) Err() error            { return it.stream.Err() }
func (it *sdkBatchResultIterator) Close() error          { return it.stream.Close() }

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		// Unknown roles fall through to user.
		if m.Role == "assistant" {
			out[i] = sdk.NewAssistantMessage(block)
		} else {
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

func toSDKSystemBlocks(blocks []SystemBlock) []sdk.TextBlockParam {
	out := make([]sdk.TextBlockParam, len(blocks))
	for i, b := range blocks {
		out[i] = sdk.TextBlockParam{Text: b.Text}
		if b.CacheControl == nil {
			continue
		}
		cc := sdk.NewCacheControlEphemeralParam()
		if b.CacheControl.TTL != "" {
			cc.TTL = sdk.CacheControlEphemeralTTL(b.CacheControl.TTL)
		}
		out[i].CacheControl = cc
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	blocks := make([]ContentBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		blocks = append(blocks, ContentBlock{Type: b.Type, Text: b.Text})
	}

	return &MessageResponse{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Content:      blocks,
		StopReason:   string(msg.StopReason),
		StopSequence: msg.StopSequence,
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
}

func fromSDKBatch(batch *sdk.MessageBatch) *BatchResponse {
	return &BatchResponse{
		ID:               batch.ID,
		ProcessingStatus: string(batch.ProcessingStatus),
		ResultsURL:       batch.ResultsURL,
		RequestCounts: RequestCounts{
			Processing: batch.RequestCounts.Processing,
			Succeeded:  batch.RequestCounts.Succeeded,
			Errored:    batch.RequestCounts.Errored,
			Canceled:   batch.RequestCounts.Canceled,
			Expired:    batch.RequestCounts.Expired,
		},
	}
}

func fromSDKBatchResult(resp sdk.MessageBatchIndividualResponse) BatchResultItem {
	item := BatchResultItem{
		CustomID: resp.CustomID,
		Type:     resp.Result.Type,
	}
	if resp.Result.Type == "succeeded" {
		msg := resp.Result.Message
		item.Message = fromSDKMessage(&msg)
	}
	return item
}
