// Package cache provides the best-effort response cache that short-circuits
// repeated queries. Keys are a pure function of (tenant, normalized query),
// so distinct tenants never share an entry even for byte-identical query
// text. The cache is an optional side channel: every failure degrades to a
// miss and is logged, never surfaced — an unreachable cache slows queries
// down but cannot break them.
package cache

import (
	"context"
	"time"

	"github.com/54b3r/ragd/internal/rag"
)

// Cache maps (tenant, normalized query) to a previously computed response
// with a bounded lifetime. Implementations must be safe to call from
// multiple goroutines, and must never return an error: a failed lookup is a
// miss and a failed write is dropped.
type Cache interface {
	// Get returns the cached result for the tenant's query, or false when
	// the key is absent, expired, or the cache is unavailable.
	Get(ctx context.Context, tenantID, query string) (rag.QueryResult, bool)

	// Set stores the result under the tenant's query key with the given
	// lifetime, replacing any existing value (last-write-wins resets the
	// lifetime). Best-effort.
	Set(ctx context.Context, tenantID, query string, result rag.QueryResult, ttl time.Duration)
}
