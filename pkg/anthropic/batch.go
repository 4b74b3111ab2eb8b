package anthropic

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 30 * time.Minute
)

// PollOption configures batch polling.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

// WithPollInterval sets the initial interval between GetBatch calls.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) { c.initial = d }
}

// WithPollCap sets the maximum interval between GetBatch calls.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) { c.cap = d }
}

// WithPollTimeout bounds the total time spent polling when the caller's
// context carries no deadline of its own.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) { c.timeout = d }
}

// PollBatch calls GetBatch until the batch ends, doubling the interval
// up to the cap with a small jitter on each wait. Expired and canceled
// batches return the last response alongside an error.
func PollBatch(ctx context.Context, client Client, batchID string, opts ...PollOption) (*BatchResponse, error) {
	cfg := pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		batch, err := client.GetBatch(ctx, batchID)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("anthropic: poll batch %s", batchID))
		}

		switch batch.ProcessingStatus {
		case "ended":
			return batch, nil
		case "expired":
			return batch, eris.Errorf("anthropic: batch %s expired", batchID)
		case "canceled", "canceling":
			return batch, eris.Errorf("anthropic: batch %s canceled", batchID)
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("anthropic: poll batch %s timed out", batchID))
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
		// Spread polls out by up to 20% either way.
		jitter := time.Duration(rand.Int64N(int64(interval) / 5))
		if rand.IntN(2) == 0 {
			interval += jitter
		} else {
			interval -= jitter
		}
	}
}

// CollectBatchResults drains the iterator and returns succeeded messages
// keyed by custom ID. Failed items are logged and omitted, so a missing
// key means that request did not succeed.
func CollectBatchResults(iter BatchResultIterator) (map[string]*MessageResponse, error) {
	defer iter.Close() //nolint:errcheck

	succeeded := make(map[string]*MessageResponse)
	var failed int
	for iter.Next() {
		item := iter.Item()
		if item.Type == "succeeded" && item.Message != nil {
			succeeded[item.CustomID] = item.Message
			continue
		}
		failed++
		zap.L().Warn("anthropic: batch item failed",
			zap.String("custom_id", item.CustomID),
			zap.String("type", item.Type),
		)
	}
	if err := iter.Err(); err != nil {
		return nil, eris.Wrap(err, "anthropic: collect batch results")
	}

	if failed > 0 {
		zap.L().Warn("anthropic: batch had failed items",
			zap.Int("succeeded", len(succeeded)),
			zap.Int("failed", failed),
		)
	}
	return succeeded, nil
}
