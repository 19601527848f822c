package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/rag"
)

const (
	// defaultMaxAttempts bounds the retry budget for transient provider
	// failures (the first call plus retries).
	defaultMaxAttempts = 3

	// defaultBaseDelay is the backoff before the first retry; each further
	// retry doubles it.
	defaultBaseDelay = time.Second
)

// retryingEmbedder decorates a rag.Embedder with bounded exponential-backoff
// retries on transient failures. Terminal failures (bad request, broken
// config) surface immediately; exhausted retries surface as
// rag.ErrProviderUnavailable.
type retryingEmbedder struct {
	// next is the wrapped live embedder.
	next rag.Embedder
	// maxAttempts is the total attempt budget (>= 1).
	maxAttempts int
	// baseDelay is the backoff before the first retry.
	baseDelay time.Duration
}

// WithRetry wraps next with the default bounded exponential-backoff retry
// policy. The mock embedder never fails and is not wrapped by the factory.
func WithRetry(next rag.Embedder) rag.Embedder {
	return &retryingEmbedder{
		next:        next,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
}

// Embed delegates to the wrapped embedder, retrying transient failures with
// exponential backoff until the attempt budget is exhausted.
func (r *retryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		embeddings, err := r.next.Embed(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		if !rag.IsTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt == r.maxAttempts {
			break
		}

		logging.FromContext(ctx).Warn("embedder: transient failure, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("embedder: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("embedder: retries exhausted after %d attempts: %v: %w",
		r.maxAttempts, lastErr, rag.ErrProviderUnavailable)
}
