package provider

import (
	"fmt"
	"strings"

	"github.com/54b3r/ragd/internal/rag"
)

// safetyContract is the fixed instruction sent with every generation request.
// It is not user-configurable: the pipeline's grounding guarantees depend on
// it being identical on every invocation.
const safetyContract = `You are an assistant that answers questions based ONLY on the provided context.

RULES:
1. You MUST cite a source for every factual claim you make.
2. Cite using the exact format [Source: <chunk id>] with a chunk id from the context below. Never invent an id.
3. If the context does not contain the information needed to answer, you MUST respond with exactly: "` + rag.RefusalAnswer + `"
4. Do NOT use your general knowledge — only the provided context.
5. Be concise and accurate.`

// BuildMessages renders the system and user message contents for one
// generation request: the safety contract plus the grounding context built
// from the retrieved chunks, and the user's query. Exported so mock and live
// responders (and their tests) share one rendering.
func BuildMessages(query string, chunks []rag.ScoredChunk) (system, user string) {
	var b strings.Builder
	b.WriteString(safetyContract)
	b.WriteString("\n\nCONTEXT:\n")
	for _, sc := range chunks {
		fmt.Fprintf(&b, "\n[Source: %s] (document %s)\n%s\n", sc.Chunk.ID, sc.Chunk.DocumentID, sc.Chunk.Text)
	}
	return b.String(), query
}
