package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/ragd/internal/budget"
	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/rag"
)

const (
	// defaultCallTimeout bounds each individual generation call. Exceeding it
	// counts against the retry budget like any other transient failure.
	defaultCallTimeout = 60 * time.Second

	// defaultMaxAttempts is the generation attempt budget (first call plus
	// retries).
	defaultMaxAttempts = 3

	// defaultBaseDelay is the backoff before the first retry; each further
	// retry doubles it.
	defaultBaseDelay = time.Second
)

// LiveResponder implements rag.Responder on top of an Eino ChatModel.
// Transient failures are retried with bounded exponential backoff; exhausted
// retries surface as rag.ErrProviderUnavailable. It is safe for concurrent
// use.
type LiveResponder struct {
	// chatModel is the LLM backend constructed by the factory.
	chatModel model.ToolCallingChatModel
	// callTimeout bounds each individual Generate call.
	callTimeout time.Duration
	// maxAttempts is the total attempt budget (>= 1).
	maxAttempts int
	// baseDelay is the backoff before the first retry.
	baseDelay time.Duration
}

// NewLiveResponder wraps an already-constructed chat model with the fixed
// safety contract and the retry policy.
func NewLiveResponder(chatModel model.ToolCallingChatModel) (*LiveResponder, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("provider: chat model must not be nil")
	}
	return &LiveResponder{
		chatModel:   chatModel,
		callTimeout: defaultCallTimeout,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}, nil
}

// Respond generates a grounded answer for the query from the supplied chunks.
// The safety contract is rendered into the system message on every call.
// Chunks beyond the context token budget are dropped least-similar-first.
func (r *LiveResponder) Respond(ctx context.Context, query string, chunks []rag.ScoredChunk) (string, error) {
	trimmed := budget.TrimChunks(query, chunks, budget.DefaultMaxContextTokens)
	if len(trimmed) < len(chunks) {
		logging.FromContext(ctx).Warn("responder: context trimmed to fit token budget",
			slog.Int("retrieved", len(chunks)),
			slog.Int("kept", len(trimmed)),
		)
	}
	system, user := BuildMessages(query, trimmed)
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
	logging.FromContext(ctx).Debug("responder: generating",
		slog.Int("chunks", len(trimmed)),
		slog.Int("prompt_tokens_estimate", budget.EstimateMessages(messages)),
	)

	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		answer, err := r.generate(ctx, messages)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == r.maxAttempts {
			break
		}

		logging.FromContext(ctx).Warn("responder: generation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("responder: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", fmt.Errorf("responder: retries exhausted after %d attempts: %v: %w",
		r.maxAttempts, lastErr, rag.ErrProviderUnavailable)
}

// generate performs one bounded Generate call.
func (r *LiveResponder) generate(ctx context.Context, messages []*schema.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	out, err := r.chatModel.Generate(callCtx, messages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil || out.Content == "" {
		return "", fmt.Errorf("generate: model returned an empty response")
	}
	return out.Content, nil
}
