package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/54b3r/ragd/internal/rag"
)

// mockPreviewLen is the number of leading runes of the top-ranked chunk
// included in mock answers, so tests can assert the answer reflects the
// retrieved context.
const mockPreviewLen = 100

// MockResponder is a deterministic rag.Responder for cost-free testing and
// local development. Its answer is a pure function of (query, chunks): it
// cites every supplied chunk identifier verbatim and never calls any network
// service, so the full pipeline — retrieval, ranking, caching, auditing — is
// exercised exactly as in live mode.
type MockResponder struct{}

// NewMockResponder constructs a MockResponder.
func NewMockResponder() *MockResponder {
	return &MockResponder{}
}

// Respond builds the deterministic mock answer. The pipeline refuses before
// generation when retrieval is empty, but an empty context still yields the
// refusal statement here so the mock honors the safety contract on its own.
func (m *MockResponder) Respond(_ context.Context, _ string, chunks []rag.ScoredChunk) (string, error) {
	if len(chunks) == 0 {
		return rag.RefusalAnswer, nil
	}

	preview := []rune(chunks[0].Chunk.Text)
	if len(preview) > mockPreviewLen {
		preview = preview[:mockPreviewLen]
	}

	ids := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		ids = append(ids, sc.Chunk.ID)
	}

	return fmt.Sprintf("Based on the indexed documents: %s... [Sources: %s]",
		string(preview), strings.Join(ids, ", ")), nil
}
