package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/54b3r/ragd/internal/rag"
)

// embedderFunc adapts a function to rag.Embedder for test doubles.
type embedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f embedderFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

func fastRetry(next rag.Embedder) *retryingEmbedder {
	return &retryingEmbedder{next: next, maxAttempts: 3, baseDelay: time.Millisecond}
}

func TestRetry_TransientFailureEventuallySucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	inner := embedderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls < 3 {
			return nil, &rag.TransientError{Err: errors.New("rate limited")}
		}
		return [][]float32{{1, 0}}, nil
	})

	vecs, err := fastRetry(inner).Embed(context.Background(), []string{"q"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(vecs) != 1 {
		t.Errorf("got %d vectors, want 1", len(vecs))
	}
}

func TestRetry_TerminalFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	terminal := errors.New("invalid model")
	calls := 0
	inner := embedderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		return nil, terminal
	})

	_, err := fastRetry(inner).Embed(context.Background(), []string{"q"})
	if !errors.Is(err, terminal) {
		t.Fatalf("err = %v, want the terminal error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ExhaustionWrapsProviderUnavailable(t *testing.T) {
	t.Parallel()

	calls := 0
	inner := embedderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		return nil, &rag.TransientError{Err: errors.New("timeout")}
	})

	_, err := fastRetry(inner).Embed(context.Background(), []string{"q"})
	if !errors.Is(err, rag.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want rag.ErrProviderUnavailable", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ContextCancellationStopsBackoff(t *testing.T) {
	t.Parallel()

	inner := embedderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, &rag.TransientError{Err: errors.New("timeout")}
	})
	r := &retryingEmbedder{next: inner, maxAttempts: 3, baseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Embed(ctx, []string{"q"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
