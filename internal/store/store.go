// Package store provides the SQLite-backed persistence layer: tenants,
// documents, chunks with their embeddings, and the immutable query audit log.
// The same store doubles as the default vector index — chunk embeddings are
// stored as BLOB columns and searched with a brute-force cosine scan, which
// is exact and plenty fast for single-host corpora. Deployments that
// outgrow it point the pipeline at Qdrant instead.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/ragd/internal/rag"
)

// SQLiteStore implements rag.DocumentStore and rag.VectorStore over a local
// SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the service database.
// It resolves to ~/.ragd/ragd.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragd")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ragd.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	// foreign_keys is a per-connection setting in SQLite, so it has to ride
	// on the DSN where the driver applies it to every new connection.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS tenants (
    id          TEXT    PRIMARY KEY,
    name        TEXT    NOT NULL,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);

CREATE TABLE IF NOT EXISTS documents (
    id          TEXT    PRIMARY KEY,
    tenant_id   TEXT    NOT NULL REFERENCES tenants(id),
    content     TEXT    NOT NULL,
    metadata    TEXT    NOT NULL DEFAULT '{}',  -- JSON object
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant
    ON documents (tenant_id, created_at);

CREATE TABLE IF NOT EXISTS chunks (
    id               TEXT    PRIMARY KEY,
    document_id      TEXT    NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    tenant_id        TEXT    NOT NULL,  -- denormalized for scan without a join
    chunk_index      INTEGER NOT NULL,
    text             TEXT    NOT NULL,
    embedding        BLOB    NOT NULL,  -- little-endian float32 vector
    embedding_model  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks (tenant_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id);

CREATE TABLE IF NOT EXISTS query_logs (
    id          TEXT    PRIMARY KEY,
    tenant_id   TEXT    NOT NULL,
    query       TEXT    NOT NULL,
    answer      TEXT    NOT NULL,
    cached      INTEGER NOT NULL,
    source_ids  TEXT    NOT NULL DEFAULT '[]',  -- JSON array of chunk IDs
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_logs_tenant
    ON query_logs (tenant_id, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// CreateTenant persists a new tenant.
func (s *SQLiteStore) CreateTenant(ctx context.Context, t rag.Tenant) error {
	const q = `INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?)`
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, q, t.ID, t.Name, createdAt.Unix()); err != nil {
		return rag.NewStorageError("create tenant", err)
	}
	return nil
}

// GetTenant returns the tenant with the given ID, or rag.ErrTenantNotFound.
func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (rag.Tenant, error) {
	const q = `SELECT id, name, created_at FROM tenants WHERE id = ?`
	var t rag.Tenant
	var ts int64
	err := s.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Name, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return rag.Tenant{}, fmt.Errorf("store: tenant %s: %w", id, rag.ErrTenantNotFound)
	}
	if err != nil {
		return rag.Tenant{}, rag.NewStorageError("get tenant", err)
	}
	t.CreatedAt = time.Unix(ts, 0)
	return t, nil
}

// ListTenants returns all tenants ordered by creation time.
func (s *SQLiteStore) ListTenants(ctx context.Context) ([]rag.Tenant, error) {
	const q = `SELECT id, name, created_at FROM tenants ORDER BY created_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, rag.NewStorageError("list tenants", err)
	}
	defer rows.Close()

	var tenants []rag.Tenant
	for rows.Next() {
		var t rag.Tenant
		var ts int64
		if err := rows.Scan(&t.ID, &t.Name, &ts); err != nil {
			return nil, rag.NewStorageError("list tenants scan", err)
		}
		t.CreatedAt = time.Unix(ts, 0)
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, rag.NewStorageError("list tenants rows", err)
	}
	return tenants, nil
}

// InsertDocument persists a document and its chunks within one transaction,
// so a failure partway leaves no trace of the document. Every chunk must
// carry the document's tenant ID.
func (s *SQLiteStore) InsertDocument(ctx context.Context, doc rag.Document, chunks []rag.Chunk) error {
	for _, c := range chunks {
		if c.TenantID != doc.TenantID {
			return fmt.Errorf("store: chunk %s tenant %q does not match document tenant %q",
				c.ID, c.TenantID, doc.TenantID)
		}
		if c.DocumentID != doc.ID {
			return fmt.Errorf("store: chunk %s references document %q, expected %q",
				c.ID, c.DocumentID, doc.ID)
		}
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return rag.NewStorageError("encode document metadata", err)
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rag.NewStorageError("begin insert document", err)
	}
	defer tx.Rollback()

	const docQ = `INSERT INTO documents (id, tenant_id, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, docQ, doc.ID, doc.TenantID, doc.Content, string(metadata), createdAt.Unix()); err != nil {
		return rag.NewStorageError("insert document", err)
	}

	const chunkQ = `INSERT INTO chunks (id, document_id, tenant_id, chunk_index, text, embedding, embedding_model)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, chunkQ,
			c.ID, c.DocumentID, c.TenantID, c.Index, c.Text, encodeVector(c.Embedding), c.EmbeddingModel); err != nil {
			return rag.NewStorageError("insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return rag.NewStorageError("commit insert document", err)
	}
	return nil
}

// DeleteDocument removes a document and all its chunks. The chunks are
// deleted explicitly in the same transaction rather than left to the schema
// cascade, so no orphan can survive on a connection where the foreign_keys
// pragma is not in effect. Deleting a document that does not exist (or
// belongs to another tenant) is a no-op.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rag.NewStorageError("delete document", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ? AND tenant_id = ?`,
		documentID, tenantID); err != nil {
		return rag.NewStorageError("delete document chunks", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND tenant_id = ?`,
		documentID, tenantID); err != nil {
		return rag.NewStorageError("delete document", err)
	}
	if err := tx.Commit(); err != nil {
		return rag.NewStorageError("delete document", err)
	}
	return nil
}

// AppendQueryLog writes one immutable audit row.
func (s *SQLiteStore) AppendQueryLog(ctx context.Context, entry rag.QueryLog) error {
	sourceIDs, err := json.Marshal(entry.SourceIDs)
	if err != nil {
		return rag.NewStorageError("encode source ids", err)
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	const q = `INSERT INTO query_logs (id, tenant_id, query, answer, cached, source_ids, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		entry.ID, entry.TenantID, entry.Query, entry.Answer, boolToInt(entry.Cached), string(sourceIDs), ts.Unix()); err != nil {
		return rag.NewStorageError("append query log", err)
	}
	return nil
}

// QueryLogs returns the tenant's most recent audit rows, newest first.
func (s *SQLiteStore) QueryLogs(ctx context.Context, tenantID string, limit int) ([]rag.QueryLog, error) {
	const q = `
SELECT id, tenant_id, query, answer, cached, source_ids, created_at
FROM   query_logs
WHERE  tenant_id = ?
ORDER  BY created_at DESC, rowid DESC
LIMIT  ?`
	rows, err := s.db.QueryContext(ctx, q, tenantID, limit)
	if err != nil {
		return nil, rag.NewStorageError("query logs", err)
	}
	defer rows.Close()

	var logs []rag.QueryLog
	for rows.Next() {
		var entry rag.QueryLog
		var cached int
		var sourceIDs string
		var ts int64
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.Query, &entry.Answer, &cached, &sourceIDs, &ts); err != nil {
			return nil, rag.NewStorageError("query logs scan", err)
		}
		if err := json.Unmarshal([]byte(sourceIDs), &entry.SourceIDs); err != nil {
			return nil, rag.NewStorageError("decode source ids", err)
		}
		entry.Cached = cached != 0
		entry.Timestamp = time.Unix(ts, 0)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, rag.NewStorageError("query logs rows", err)
	}
	return logs, nil
}

// UpsertChunks stores the given chunks, replacing rows that share an ID.
// Chunks written through InsertDocument are already indexed; this path exists
// for reindexing after an embedding model change.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, tenantID string, chunks []rag.Chunk) error {
	for _, c := range chunks {
		if c.TenantID != tenantID {
			return fmt.Errorf("store: chunk %s tenant %q does not match %q", c.ID, c.TenantID, tenantID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rag.NewStorageError("begin upsert chunks", err)
	}
	defer tx.Rollback()

	const q = `INSERT OR REPLACE INTO chunks (id, document_id, tenant_id, chunk_index, text, embedding, embedding_model)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, q,
			c.ID, c.DocumentID, c.TenantID, c.Index, c.Text, encodeVector(c.Embedding), c.EmbeddingModel); err != nil {
			return rag.NewStorageError("upsert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return rag.NewStorageError("commit upsert chunks", err)
	}
	return nil
}

// Search scans every chunk belonging to tenantID, scores it by cosine
// distance, and returns the closest topK. Ties are broken by insertion order
// (rowid) so repeated searches over unchanged data return identical results.
func (s *SQLiteStore) Search(ctx context.Context, tenantID string, queryVector []float32, topK int) ([]rag.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}

	const q = `
SELECT id, document_id, chunk_index, text, embedding, embedding_model, rowid
FROM   chunks
WHERE  tenant_id = ?`
	rows, err := s.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, rag.NewStorageError("search", err)
	}
	defer rows.Close()

	type scoredRow struct {
		scored rag.ScoredChunk
		rowid  int64
	}
	var scored []scoredRow
	for rows.Next() {
		var c rag.Chunk
		var blob []byte
		var rowid int64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &blob, &c.EmbeddingModel, &rowid); err != nil {
			return nil, rag.NewStorageError("search scan", err)
		}
		c.TenantID = tenantID
		c.Embedding = decodeVector(blob)
		scored = append(scored, scoredRow{
			scored: rag.ScoredChunk{Chunk: c, Distance: rag.CosineDistance(queryVector, c.Embedding)},
			rowid:  rowid,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, rag.NewStorageError("search rows", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].scored.Distance != scored[j].scored.Distance {
			return scored[i].scored.Distance < scored[j].scored.Distance
		}
		return scored[i].rowid < scored[j].rowid
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	results := make([]rag.ScoredChunk, len(scored))
	for i, r := range scored {
		results[i] = r.scored
	}
	return results, nil
}

// DocumentChunks returns a document's chunks in index order. Used for
// reindexing into an external vector store.
func (s *SQLiteStore) DocumentChunks(ctx context.Context, tenantID, documentID string) ([]rag.Chunk, error) {
	const q = `
SELECT id, chunk_index, text, embedding, embedding_model
FROM   chunks
WHERE  tenant_id = ? AND document_id = ?
ORDER  BY chunk_index ASC`
	rows, err := s.db.QueryContext(ctx, q, tenantID, documentID)
	if err != nil {
		return nil, rag.NewStorageError("document chunks", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		c := rag.Chunk{TenantID: tenantID, DocumentID: documentID}
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Index, &c.Text, &blob, &c.EmbeddingModel); err != nil {
			return nil, rag.NewStorageError("document chunks scan", err)
		}
		c.Embedding = decodeVector(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, rag.NewStorageError("document chunks rows", err)
	}
	return chunks, nil
}

// DocumentIDs returns all document IDs for a tenant in creation order.
func (s *SQLiteStore) DocumentIDs(ctx context.Context, tenantID string) ([]string, error) {
	const q = `SELECT id FROM documents WHERE tenant_id = ? ORDER BY created_at ASC, rowid ASC`
	rows, err := s.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, rag.NewStorageError("document ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, rag.NewStorageError("document ids scan", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, rag.NewStorageError("document ids rows", err)
	}
	return ids, nil
}

// Ping verifies the database is reachable and writable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Name identifies the backend in readiness reports.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// encodeVector packs a float32 vector into a little-endian BLOB.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian BLOB into a float32 vector.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
