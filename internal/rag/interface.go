package rag

import (
	"context"
)

// Embedder converts text into fixed-length dense vectors. Two implementations
// exist: a live one backed by an embedding API, and a deterministic mock that
// derives vectors from a hash of the text. Selection happens once at startup
// from configuration, never at call sites.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice. Implementations
	// split oversized batches transparently.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Responder generates a natural-language answer for a query from the supplied
// grounding context. Every invocation carries the fixed safety contract: the
// model may use only the supplied context, must cite supplied chunk
// identifiers, and must emit [RefusalAnswer] when the context is insufficient.
// Implementations must be safe to call from multiple goroutines.
type Responder interface {
	// Respond returns an answer grounded on the given chunks. The chunks are
	// never empty — the pipeline refuses before generation when retrieval
	// returns nothing.
	Respond(ctx context.Context, query string, chunks []ScoredChunk) (string, error)
}

// VectorStore persists chunk vectors scoped by tenant and performs
// nearest-neighbor search restricted to one tenant. There is deliberately no
// operation that spans tenants: every method takes a tenant identifier.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// UpsertChunks stores the given chunks under tenantID. Every chunk's
	// TenantID must equal tenantID; implementations reject mismatches.
	// The batch is applied atomically — a concurrent Search never observes
	// part of it.
	UpsertChunks(ctx context.Context, tenantID string, chunks []Chunk) error

	// Search returns at most topK chunks belonging to tenantID, ordered by
	// ascending cosine distance from queryVector. Ties are broken by chunk
	// insertion order (older first) so results are deterministic.
	Search(ctx context.Context, tenantID string, queryVector []float32, topK int) ([]ScoredChunk, error)
}

// DocumentStore is the relational persistence boundary: tenants, documents,
// chunks, and the query audit log. Implementations must be safe to call from
// multiple goroutines.
type DocumentStore interface {
	// CreateTenant persists a new tenant.
	CreateTenant(ctx context.Context, t Tenant) error

	// GetTenant returns the tenant with the given ID, or ErrTenantNotFound.
	GetTenant(ctx context.Context, id string) (Tenant, error)

	// ListTenants returns all tenants ordered by creation time.
	ListTenants(ctx context.Context) ([]Tenant, error)

	// InsertDocument persists a document and all of its chunks within one
	// unit of work. Either every row is visible afterwards or none is.
	InsertDocument(ctx context.Context, doc Document, chunks []Chunk) error

	// DeleteDocument removes a document and, by cascade, all of its chunks.
	DeleteDocument(ctx context.Context, tenantID, documentID string) error

	// AppendQueryLog writes one immutable audit row.
	AppendQueryLog(ctx context.Context, entry QueryLog) error
}
