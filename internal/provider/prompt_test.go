package provider

import (
	"strings"
	"testing"

	"github.com/54b3r/ragd/internal/rag"
)

func scored(id, doc, text string) rag.ScoredChunk {
	return rag.ScoredChunk{Chunk: rag.Chunk{ID: id, DocumentID: doc, Text: text}}
}

func TestBuildMessages_IncludesContractAndContext(t *testing.T) {
	t.Parallel()

	chunks := []rag.ScoredChunk{
		scored("chunk-1", "doc-a", "Refunds are issued within 30 days."),
		scored("chunk-2", "doc-a", "Shipping takes two business days."),
	}

	system, user := BuildMessages("what is the refund window?", chunks)

	if user != "what is the refund window?" {
		t.Errorf("user message = %q, want the raw query", user)
	}
	if !strings.Contains(system, rag.RefusalAnswer) {
		t.Error("system message does not embed the refusal statement")
	}
	for _, want := range []string{
		"[Source: chunk-1] (document doc-a)",
		"[Source: chunk-2] (document doc-a)",
		"Refunds are issued within 30 days.",
		"Shipping takes two business days.",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system message missing %q", want)
		}
	}
}

func TestBuildMessages_EmptyContext(t *testing.T) {
	t.Parallel()

	system, _ := BuildMessages("anything", nil)
	// The contract text above the marker mentions the citation format as an
	// instruction; only the context section itself must stay free of sources.
	marker := strings.Index(system, "CONTEXT:")
	if marker < 0 {
		t.Fatal("system message missing context section")
	}
	if strings.Contains(system[marker:], "[Source: ") {
		t.Error("context section cites a source with no chunks supplied")
	}
}
