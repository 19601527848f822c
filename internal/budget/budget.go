// Package budget provides token budget estimation and context trimming for
// generation requests. Because multiple model backends with different
// tokenizers are supported, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose and code). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/ragd/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B)
	// while leaving room for the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimChunks drops retrieved chunks from the tail until the estimated token
// count of the query plus all chunk texts fits within maxTokens. Chunks
// arrive ordered most-similar-first, so trimming sacrifices the least
// relevant context. At least one chunk is always kept: a single oversized
// chunk is a caller bug, not something trimming can fix.
func TrimChunks(query string, chunks []rag.ScoredChunk, maxTokens int) []rag.ScoredChunk {
	if len(chunks) == 0 {
		return chunks
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}

	budget := maxTokens - Estimate(query)
	total := 0
	for i, sc := range chunks {
		total += Estimate(sc.Chunk.Text)
		if total > budget && i > 0 {
			return chunks[:i]
		}
	}
	return chunks
}
