package rag

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance. All chunks
// share one collection; isolation is enforced by an indexed tenant_id payload
// field that every upsert writes and every search filters on. The similarity
// metric is fixed to cosine at collection creation and never changes for a
// collection with history already written.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// seq is a process-local insertion counter used to break distance ties
	// deterministically (older chunk first). Seeded from the wall clock so
	// ordinals written by successive processes normally keep increasing;
	// tie order is strictly guaranteed within one process only, since a
	// backwards clock step between restarts can order newer points first.
	seq atomic.Int64
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// and its tenant_id payload index exist, and returns a ready-to-use
// VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	store.seq.Store(time.Now().UnixNano())
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection and the tenant_id keyword
// index if they do not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.cfg.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
		}
	}

	// Keyword index on tenant_id keeps filtered searches fast as the
	// collection grows. Creating it again is a no-op.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.cfg.Collection,
		FieldName:      "tenant_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create tenant_id index: %w", err)
	}

	return nil
}

// UpsertChunks stores a batch of chunks under tenantID. Each chunk carries
// its full text and document linkage in the payload so search results can be
// returned without a second lookup. Qdrant applies the batch atomically.
func (s *QdrantStore) UpsertChunks(ctx context.Context, tenantID string, chunks []Chunk) error {
	if tenantID == "" {
		return fmt.Errorf("qdrant: tenant id must not be empty")
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if c.TenantID != tenantID {
			return fmt.Errorf("qdrant: chunk %s belongs to tenant %s, not %s", c.ID, c.TenantID, tenantID)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"tenant_id":       c.TenantID,
				"document_id":     c.DocumentID,
				"chunk_index":     int64(c.Index),
				"text":            c.Text,
				"embedding_model": c.EmbeddingModel,
				"ord":             s.seq.Add(1),
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search performs a cosine similarity search restricted to tenantID and
// returns the top-k results ordered by ascending distance. Qdrant cannot
// break equal-score ties by insertion order itself, so results are re-sorted
// by (distance, insertion ordinal) after retrieval.
func (s *QdrantStore) Search(ctx context.Context, tenantID string, queryVector []float32, topK int) ([]ScoredChunk, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("qdrant: tenant id must not be empty")
	}
	if topK <= 0 {
		return nil, nil
	}

	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("tenant_id", tenantID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	type ordered struct {
		sc  ScoredChunk
		ord int64
	}

	hits := make([]ordered, 0, len(results))
	for _, r := range results {
		c := Chunk{ID: r.Id.GetUuid(), TenantID: tenantID}
		var ord int64
		if p := r.Payload; p != nil {
			if v, ok := p["document_id"]; ok {
				c.DocumentID = v.GetStringValue()
			}
			if v, ok := p["chunk_index"]; ok {
				c.Index = int(v.GetIntegerValue())
			}
			if v, ok := p["text"]; ok {
				c.Text = v.GetStringValue()
			}
			if v, ok := p["embedding_model"]; ok {
				c.EmbeddingModel = v.GetStringValue()
			}
			if v, ok := p["ord"]; ok {
				ord = v.GetIntegerValue()
			}
		}
		// Qdrant reports cosine similarity; the pipeline works in distances.
		hits = append(hits, ordered{sc: ScoredChunk{Chunk: c, Distance: 1 - r.Score}, ord: ord})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].sc.Distance != hits[j].sc.Distance {
			return hits[i].sc.Distance < hits[j].sc.Distance
		}
		return hits[i].ord < hits[j].ord
	})

	out := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.sc)
	}
	return out, nil
}

// DeleteDocumentChunks removes every chunk belonging to the given document.
// Used by the ingest pipeline to compensate when a relational commit succeeds
// but a later step fails, and by document deletion.
func (s *QdrantStore) DeleteDocumentChunks(ctx context.Context, tenantID, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("tenant_id", tenantID),
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}
	return nil
}

// Ping checks the Qdrant connection for readiness probes.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Name returns the probe label for readiness responses.
func (s *QdrantStore) Name() string { return "qdrant" }

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
