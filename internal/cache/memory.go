package cache

import (
	"context"
	"sync"
	"time"

	"github.com/54b3r/ragd/internal/rag"
)

// janitorInterval is how often the in-memory cache sweeps expired entries.
// Expired entries are also rejected lazily on Get, so the sweep only bounds
// memory growth for keys that are never read again.
const janitorInterval = time.Minute

type memoryEntry struct {
	result    rag.QueryResult
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache. It is the default backend and
// the one used by tests; for multi-replica deployments RedisCache should be
// used instead so replicas share hits.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once

	// now is swappable in tests.
	now func() time.Time
}

// NewMemoryCache returns a running in-memory cache. Close stops its
// background sweeper.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go c.janitor()
	return c
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, tenantID, query string) (rag.QueryResult, bool) {
	key := Key(tenantID, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return rag.QueryResult{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return rag.QueryResult{}, false
	}
	return entry.result, true
}

// Set implements Cache. A non-positive ttl stores nothing.
func (c *MemoryCache) Set(_ context.Context, tenantID, query string, result rag.QueryResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	key := Key(tenantID, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{result: result, expiresAt: c.now().Add(ttl)}
}

// Len reports the number of live entries, counting expired entries not yet
// swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the background sweeper. The cache remains usable afterwards;
// expired entries are then only reclaimed lazily on Get.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
