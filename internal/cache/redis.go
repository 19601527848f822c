package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/rag"
)

// RedisConfig holds connection settings for the shared cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache stores responses in Redis so that every replica of the service
// sees the same cache. Entries are JSON-encoded QueryResult values with a
// server-side TTL; Redis owns expiry.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisCache{client: client}, nil
}

// Get implements Cache. Connection errors and undecodable payloads count as
// misses; the payload case also deletes the bad key so it cannot poison
// later lookups.
func (c *RedisCache) Get(ctx context.Context, tenantID, query string) (rag.QueryResult, bool) {
	key := Key(tenantID, query)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.FromContext(ctx).Warn("cache lookup failed", "key", key, "error", err)
		}
		return rag.QueryResult{}, false
	}

	var result rag.QueryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		logging.FromContext(ctx).Warn("discarding undecodable cache entry", "key", key, "error", err)
		c.client.Del(ctx, key)
		return rag.QueryResult{}, false
	}
	return result, true
}

// Set implements Cache. Failures are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, tenantID, query string, result rag.QueryResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	key := Key(tenantID, query)

	raw, err := json.Marshal(result)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("cache write failed", "key", key, "error", err)
	}
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return nil
}

// Name identifies the backend in readiness reports.
func (c *RedisCache) Name() string { return "redis" }

// Close releases the client's connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
