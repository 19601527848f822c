// Package rag defines the shared types and interfaces for the tenant-isolated
// retrieval-augmented response pipeline: tenants, documents, chunks, vector
// storage, embedding, and grounded response generation.
// Concrete implementations (SQLite, Qdrant, OpenAI, deterministic mocks)
// satisfy these interfaces so the pipeline layer never depends on a specific
// backend.
package rag

import (
	"time"
)

// RefusalAnswer is the fixed statement returned whenever the retrieved
// grounding context is insufficient to answer a query. It is also the exact
// text the response model is instructed to emit when it cannot answer from
// the supplied context, so refusals are byte-identical on both paths.
const RefusalAnswer = "I cannot answer this question based on the available documents."

// Tenant is the isolation boundary. All documents, chunks, cache entries,
// and audit rows are partitioned by tenant identifier.
type Tenant struct {
	// ID is the opaque, globally unique tenant identifier (UUID).
	ID string

	// Name is the human-readable display name. The only mutable field.
	Name string

	// CreatedAt is when the tenant was created.
	CreatedAt time.Time
}

// Document is a unit of ingested knowledge owned by exactly one tenant.
type Document struct {
	// ID is the unique document identifier (UUID).
	ID string

	// TenantID is the owning tenant. Must reference an existing Tenant.
	TenantID string

	// Content is the raw ingested text.
	Content string

	// Metadata holds free-form key-value pairs supplied at ingestion.
	Metadata map[string]string

	// CreatedAt is when the document was persisted.
	CreatedAt time.Time
}

// Chunk is a contiguous slice of a document's text paired with its embedding.
// Chunks are immutable once written.
type Chunk struct {
	// ID is the unique chunk identifier (UUID).
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// TenantID is the owning tenant, denormalized from the document so that
	// isolation is enforced without a join. Always equals the document's
	// TenantID — the store rejects writes where it does not.
	TenantID string

	// Index is the ordinal position of this chunk within its document.
	Index int

	// Text is the chunk's text span.
	Text string

	// Embedding is the chunk's vector, with the dimensionality of the
	// configured embedding model.
	Embedding []float32

	// EmbeddingModel identifies the model that produced the embedding.
	EmbeddingModel string
}

// ScoredChunk is a chunk returned from a vector search together with its
// cosine distance from the query vector (smaller is more similar).
type ScoredChunk struct {
	Chunk Chunk

	// Distance is the cosine distance (1 - cosine similarity) in [0, 2].
	Distance float32
}

// Similarity converts the stored distance back to a cosine similarity score.
func (s ScoredChunk) Similarity() float32 { return 1 - s.Distance }

// Source is a citation reference included in a query result.
type Source struct {
	// DocumentID is the document the cited chunk belongs to.
	DocumentID string `json:"document_id"`

	// ChunkID is the identifier the response model uses as a citation token.
	ChunkID string `json:"chunk_id"`

	// ChunkText is the cited chunk's text.
	ChunkText string `json:"chunk_text"`

	// SimilarityScore is the cosine similarity of the chunk to the query.
	SimilarityScore float32 `json:"similarity_score"`
}

// QueryResult is the outcome of one resolved query.
type QueryResult struct {
	// Answer is the grounded answer text, or RefusalAnswer when the
	// retrieved context was insufficient.
	Answer string `json:"answer"`

	// Sources lists the chunks the answer is grounded on, most similar
	// first. Empty on refusal.
	Sources []Source `json:"sources"`

	// Cached reports whether this result was served from the cache.
	Cached bool `json:"cached"`
}

// IngestResult is the outcome of one document ingestion.
type IngestResult struct {
	// DocumentID is the identifier of the newly created document.
	DocumentID string `json:"document_id"`

	// ChunksCreated is the number of chunks persisted for the document.
	ChunksCreated int `json:"chunks_created"`
}

// QueryLog is an immutable audit record of one query resolution. Exactly one
// row is written per incoming query, whether served from cache, refused, or
// freshly generated.
type QueryLog struct {
	// ID is the unique log identifier (UUID).
	ID string

	// TenantID is the tenant the query was issued as.
	TenantID string

	// Query is the raw query text as received.
	Query string

	// Answer is the answer text that was returned.
	Answer string

	// Cached reports whether the result was served from the cache.
	Cached bool

	// SourceIDs lists the chunk identifiers cited in the answer.
	SourceIDs []string

	// Timestamp is when the query was resolved.
	Timestamp time.Time
}
