// Package pipeline wires the retrieval-augmented response flow end to end:
// tenant-scoped ingestion (chunk, embed, persist atomically) and query
// resolution (cache, retrieve, generate or refuse, audit). It depends only on
// the interfaces in package rag, so every backend — relational store, vector
// index, embedder, responder, cache — is swappable without touching the flow.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/ragd/internal/audit"
	"github.com/54b3r/ragd/internal/cache"
	"github.com/54b3r/ragd/internal/chunker"
	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/rag"
)

// Settings are the tuning knobs of the pipeline, resolved once at startup.
type Settings struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int

	// ChunkOverlap is the number of runes shared between adjacent chunks.
	ChunkOverlap int

	// CacheTTL bounds how long a response may be served from the cache.
	CacheTTL time.Duration

	// DefaultTopK is the number of chunks retrieved when the caller does not
	// ask for a specific count.
	DefaultTopK int

	// MaxDistance drops retrieved chunks whose cosine distance exceeds it.
	// Zero disables the threshold.
	MaxDistance float32

	// EmbeddingModel is recorded on every chunk so a model change is
	// detectable at reindex time.
	EmbeddingModel string
}

// DefaultSettings returns the standard pipeline configuration.
func DefaultSettings() Settings {
	return Settings{
		ChunkSize:    chunker.DefaultChunkSize,
		ChunkOverlap: chunker.DefaultOverlap,
		CacheTTL:     time.Hour,
		DefaultTopK:  5,
		MaxDistance:  0,
	}
}

// ChunkLister exposes the stored chunks of a tenant's documents, used to
// rebuild an external vector index.
type ChunkLister interface {
	// DocumentIDs returns all document IDs for a tenant in creation order.
	DocumentIDs(ctx context.Context, tenantID string) ([]string, error)
	// DocumentChunks returns a document's chunks in index order.
	DocumentChunks(ctx context.Context, tenantID, documentID string) ([]rag.Chunk, error)
}

// chunkPurger removes a document's chunks from an external vector index.
// The Qdrant store implements it; the compensating path uses it to clean up
// after a partial upsert.
type chunkPurger interface {
	DeleteDocumentChunks(ctx context.Context, tenantID, documentID string) error
}

// Pipeline executes ingestion and query resolution for all tenants.
type Pipeline struct {
	store     rag.DocumentStore
	vector    rag.VectorStore
	mirror    rag.VectorStore
	embedder  rag.Embedder
	responder rag.Responder
	cache     cache.Cache
	recorder  *audit.Recorder
	settings  Settings
}

// New assembles a pipeline. mirror is an external vector index kept in sync
// alongside the relational store; pass nil when the store itself serves
// search (the default SQLite setup). When mirror is non-nil it should be the
// same value as vector.
func New(store rag.DocumentStore, vector, mirror rag.VectorStore, emb rag.Embedder, resp rag.Responder, c cache.Cache, settings Settings) *Pipeline {
	if settings.ChunkSize <= 0 {
		settings.ChunkSize = chunker.DefaultChunkSize
	}
	if settings.ChunkOverlap < 0 || settings.ChunkOverlap >= settings.ChunkSize {
		settings.ChunkOverlap = chunker.DefaultOverlap
	}
	if settings.DefaultTopK <= 0 {
		settings.DefaultTopK = 5
	}
	return &Pipeline{
		store:     store,
		vector:    vector,
		mirror:    mirror,
		embedder:  emb,
		responder: resp,
		cache:     c,
		recorder:  audit.NewRecorder(store),
		settings:  settings,
	}
}

// Settings returns the pipeline's resolved settings.
func (p *Pipeline) Settings() Settings { return p.settings }

// CreateTenant registers a new tenant and returns it.
func (p *Pipeline) CreateTenant(ctx context.Context, name string) (rag.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return rag.Tenant{}, fmt.Errorf("pipeline: tenant name must not be empty")
	}
	t := rag.Tenant{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
	if err := p.store.CreateTenant(ctx, t); err != nil {
		return rag.Tenant{}, err
	}
	logging.FromContext(ctx).Info("tenant created", "tenant_id", t.ID, "name", t.Name)
	return t, nil
}

// ListTenants returns all tenants.
func (p *Pipeline) ListTenants(ctx context.Context) ([]rag.Tenant, error) {
	return p.store.ListTenants(ctx)
}

// Ingest splits content into chunks, embeds them, and persists the document
// with all its chunks as one unit. A failure at any step leaves no partial
// document behind.
func (p *Pipeline) Ingest(ctx context.Context, tenantID, content string, metadata map[string]string) (rag.IngestResult, error) {
	if strings.TrimSpace(content) == "" {
		return rag.IngestResult{}, rag.ErrEmptyContent
	}
	if _, err := p.store.GetTenant(ctx, tenantID); err != nil {
		return rag.IngestResult{}, err
	}

	texts := chunker.Split(content, p.settings.ChunkSize, p.settings.ChunkOverlap)
	if len(texts) == 0 {
		return rag.IngestResult{}, rag.ErrEmptyContent
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return rag.IngestResult{}, fmt.Errorf("pipeline: embed document: %w", err)
	}
	if len(vectors) != len(texts) {
		return rag.IngestResult{}, fmt.Errorf("pipeline: embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	doc := rag.Document{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	chunks := make([]rag.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = rag.Chunk{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			TenantID:       tenantID,
			Index:          i,
			Text:           text,
			Embedding:      vectors[i],
			EmbeddingModel: p.settings.EmbeddingModel,
		}
	}

	if err := p.store.InsertDocument(ctx, doc, chunks); err != nil {
		return rag.IngestResult{}, err
	}

	// The relational store is the source of truth; the external index is
	// synced after commit. If syncing fails, the document is rolled back by a
	// compensating delete so both stores stay consistent.
	if p.mirror != nil {
		if err := p.mirror.UpsertChunks(ctx, tenantID, chunks); err != nil {
			if delErr := p.store.DeleteDocument(ctx, tenantID, doc.ID); delErr != nil {
				logging.FromContext(ctx).Error("failed to roll back document after index sync failure",
					"tenant_id", tenantID, "document_id", doc.ID, "error", delErr)
			}
			// A failed upsert may still have written some points; purge them
			// so the index holds no chunks for a document that no longer exists.
			if purger, ok := p.mirror.(chunkPurger); ok {
				if purgeErr := purger.DeleteDocumentChunks(ctx, tenantID, doc.ID); purgeErr != nil {
					logging.FromContext(ctx).Error("failed to purge partially indexed chunks",
						"tenant_id", tenantID, "document_id", doc.ID, "error", purgeErr)
				}
			}
			return rag.IngestResult{}, fmt.Errorf("pipeline: index document chunks: %w", err)
		}
	}

	logging.FromContext(ctx).Info("document ingested",
		"tenant_id", tenantID, "document_id", doc.ID, "chunks", len(chunks))
	return rag.IngestResult{DocumentID: doc.ID, ChunksCreated: len(chunks)}, nil
}

// Query resolves a tenant's query: serve from cache when possible, otherwise
// retrieve the closest chunks and generate a grounded answer, refusing when
// nothing relevant is stored. Exactly one audit row is written per resolved
// query; errors write none.
func (p *Pipeline) Query(ctx context.Context, tenantID, query string, topK int) (rag.QueryResult, error) {
	if cache.NormalizeQuery(query) == "" {
		return rag.QueryResult{}, rag.ErrEmptyQuery
	}
	if _, err := p.store.GetTenant(ctx, tenantID); err != nil {
		return rag.QueryResult{}, err
	}
	if topK <= 0 {
		topK = p.settings.DefaultTopK
	}

	if hit, ok := p.cache.Get(ctx, tenantID, query); ok {
		hit.Cached = true
		p.recorder.Record(ctx, tenantID, query, hit)
		logging.FromContext(ctx).Info("query served from cache", "tenant_id", tenantID)
		return hit, nil
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return rag.QueryResult{}, fmt.Errorf("pipeline: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return rag.QueryResult{}, fmt.Errorf("pipeline: embedder returned %d vectors for one query", len(vectors))
	}

	scored, err := p.vector.Search(ctx, tenantID, vectors[0], topK)
	if err != nil {
		return rag.QueryResult{}, err
	}
	scored = p.withinThreshold(scored)

	if len(scored) == 0 {
		// Nothing relevant: refuse without invoking the response model. The
		// refusal is not cached so freshly ingested documents take effect on
		// the next ask.
		result := rag.QueryResult{Answer: rag.RefusalAnswer}
		p.recorder.Record(ctx, tenantID, query, result)
		logging.FromContext(ctx).Info("query refused, no relevant context", "tenant_id", tenantID)
		return result, nil
	}

	answer, err := p.responder.Respond(ctx, query, scored)
	if err != nil {
		return rag.QueryResult{}, fmt.Errorf("pipeline: generate answer: %w", err)
	}

	sources := make([]rag.Source, len(scored))
	for i, sc := range scored {
		sources[i] = rag.Source{
			DocumentID:      sc.Chunk.DocumentID,
			ChunkID:         sc.Chunk.ID,
			ChunkText:       sc.Chunk.Text,
			SimilarityScore: sc.Similarity(),
		}
	}
	result := rag.QueryResult{Answer: answer, Sources: sources}

	p.cache.Set(ctx, tenantID, query, result, p.settings.CacheTTL)
	p.recorder.Record(ctx, tenantID, query, result)
	logging.FromContext(ctx).Info("query answered",
		"tenant_id", tenantID, "sources", len(sources))
	return result, nil
}

// Reindex re-writes every stored chunk of the tenant into the external vector
// index. Used after the index is rebuilt or falls out of sync. The store must
// expose its chunks (the SQLite store does); otherwise Reindex fails.
func (p *Pipeline) Reindex(ctx context.Context, tenantID string) (int, error) {
	if p.mirror == nil {
		return 0, fmt.Errorf("pipeline: no external vector index configured")
	}
	lister, ok := p.store.(ChunkLister)
	if !ok {
		return 0, fmt.Errorf("pipeline: store does not support chunk listing")
	}
	if _, err := p.store.GetTenant(ctx, tenantID); err != nil {
		return 0, err
	}

	docIDs, err := lister.DocumentIDs(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, docID := range docIDs {
		chunks, err := lister.DocumentChunks(ctx, tenantID, docID)
		if err != nil {
			return total, err
		}
		if len(chunks) == 0 {
			continue
		}
		if err := p.mirror.UpsertChunks(ctx, tenantID, chunks); err != nil {
			return total, fmt.Errorf("pipeline: reindex document %s: %w", docID, err)
		}
		total += len(chunks)
	}
	logging.FromContext(ctx).Info("tenant reindexed",
		"tenant_id", tenantID, "documents", len(docIDs), "chunks", total)
	return total, nil
}

// withinThreshold drops chunks beyond the configured distance threshold.
func (p *Pipeline) withinThreshold(scored []rag.ScoredChunk) []rag.ScoredChunk {
	if p.settings.MaxDistance <= 0 {
		return scored
	}
	kept := scored[:0]
	for _, sc := range scored {
		if sc.Distance <= p.settings.MaxDistance {
			kept = append(kept, sc)
		}
	}
	return kept
}
