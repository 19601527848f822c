package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/54b3r/ragd/internal/cache"
	"github.com/54b3r/ragd/internal/embedder"
	"github.com/54b3r/ragd/internal/pipeline"
	"github.com/54b3r/ragd/internal/provider"
	"github.com/54b3r/ragd/internal/rag"
	"github.com/54b3r/ragd/internal/server"
	"github.com/54b3r/ragd/internal/store"
)

// deps bundles the assembled pipeline with everything a command might need
// around it: readiness probes for serve mode and a close func that releases
// every backend in reverse construction order.
type deps struct {
	pipeline *pipeline.Pipeline
	pingers  []server.Pinger
	close    func()
}

// buildPipeline assembles the full pipeline from environment variables:
// relational store, optional Qdrant mirror, cache backend, embedder, and
// responder. Mock mode (MODEL_MOCK / EMBEDDING_MOCK) swaps the live
// providers for deterministic in-process fakes, which is how the test and
// demo paths run without credentials.
func buildPipeline(ctx context.Context, log *slog.Logger) (*deps, error) {
	mockModel := os.Getenv("MODEL_MOCK") == "true"
	mockEmbed := os.Getenv("EMBEDDING_MOCK") == "true"

	if err := embedder.Validate(mockEmbed, log); err != nil {
		return nil, err
	}

	emb, err := embedder.NewFromEnv(mockEmbed)
	if err != nil {
		return nil, fmt.Errorf("commands: failed to initialise embedder: %w", err)
	}

	resp, err := provider.NewFromEnv(ctx, mockModel)
	if err != nil {
		return nil, fmt.Errorf("commands: failed to initialise model provider: %w", err)
	}

	st, err := openStore(log)
	if err != nil {
		return nil, err
	}

	closers := []func(){func() { _ = st.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	pingers := []server.Pinger{st}

	// Vector backend. Default is the embedded SQLite scan; "qdrant" mirrors
	// every chunk into an external Qdrant collection and searches there.
	var vector rag.VectorStore = st
	var mirror rag.VectorStore
	if getEnvOrDefault("VECTOR_BACKEND", "sqlite") == "qdrant" {
		embBackend := embedder.ResolveBackend()
		qs, qErr := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "ragd-chunks"),
			VectorSize: uint64(embedder.DefaultDimensions(embBackend)), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if qErr != nil {
			closeAll()
			return nil, fmt.Errorf("commands: failed to connect to Qdrant: %w", qErr)
		}
		closers = append(closers, func() { _ = qs.Close() })
		pingers = append(pingers, qs)
		vector = qs
		mirror = qs
		log.Info("vector backend: qdrant", slog.String("collection", getEnvOrDefault("QDRANT_COLLECTION", "ragd-chunks")))
	}

	// Response cache. Default is in-process; "redis" shares hits across
	// replicas.
	var respCache cache.Cache
	if getEnvOrDefault("CACHE_BACKEND", "memory") == "redis" {
		rc, rErr := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		})
		if rErr != nil {
			closeAll()
			return nil, fmt.Errorf("commands: failed to connect to Redis: %w", rErr)
		}
		closers = append(closers, func() { _ = rc.Close() })
		pingers = append(pingers, rc)
		respCache = rc
		log.Info("cache backend: redis")
	} else {
		mc := cache.NewMemoryCache()
		closers = append(closers, mc.Close)
		respCache = mc
	}

	// Probe the Ollama root endpoint when a live ollama backend is in play,
	// so /api/ready reflects the model server without spending tokens.
	if (!mockModel && getEnvOrDefault("MODEL_PROVIDER", "ollama") == "ollama") ||
		(!mockEmbed && embedder.ResolveBackend() == "ollama") {
		pingers = append(pingers, server.NewEndpointPinger("ollama", getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")))
	}

	settings := pipeline.DefaultSettings()
	settings.ChunkSize = getEnvInt("CHUNK_SIZE", settings.ChunkSize)
	settings.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", settings.ChunkOverlap)
	settings.DefaultTopK = getEnvInt("RETRIEVAL_TOP_K", settings.DefaultTopK)
	settings.MaxDistance = getEnvFloat32("RETRIEVAL_MAX_DISTANCE", settings.MaxDistance)
	if ttl := getEnvInt("CACHE_TTL_SECONDS", 0); ttl > 0 {
		settings.CacheTTL = time.Duration(ttl) * time.Second
	}
	settings.EmbeddingModel = embedder.ResolveModel(mockEmbed)

	p := pipeline.New(st, vector, mirror, emb, resp, respCache, settings)

	return &deps{pipeline: p, pingers: pingers, close: closeAll}, nil
}

// openStore opens the relational store. RAGD_DB overrides the default path
// (~/.ragd/ragd.db).
func openStore(log *slog.Logger) (*store.SQLiteStore, error) {
	dbPath := os.Getenv("RAGD_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("commands: could not resolve database path: %w", err)
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("commands: failed to open store at %s: %w", dbPath, err)
	}
	log.Info("store opened", slog.String("path", dbPath))
	return st, nil
}

// getEnvOrDefault returns the env value for key, or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer env value for key, or fallback when unset
// or unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat32 returns the float env value for key, or fallback when unset
// or unparseable.
func getEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
