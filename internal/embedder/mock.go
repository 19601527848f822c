package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// MockModel is the embedding model identifier recorded on chunks embedded in
// mock mode, so mixed-provenance vectors are detectable in the store.
const MockModel = "mock-embed"

// MockEmbedder is a deterministic rag.Embedder used for cost-free testing and
// local development. The vector for a text is a pure function of the text
// alone: a PCG generator seeded from the text's SHA-256 hash produces the
// components, which are then L2-normalized. Identical text therefore yields
// bit-identical vectors across calls, instances, and process restarts, and
// different texts diverge with overwhelming probability. No network is
// involved, so the full pipeline is exercised exactly as in live mode.
type MockEmbedder struct {
	// dimensions is the length of every produced vector.
	dimensions int
}

// NewMockEmbedder constructs a MockEmbedder producing vectors of the given
// dimensionality. Non-positive values fall back to 1536, matching the default
// live model.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Model returns the mock model identifier.
func (e *MockEmbedder) Model() string { return MockModel }

// Dimensions returns the configured vector length.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// Embed derives one deterministic vector per input text.
func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.embedOne(text)
	}
	return embeddings, nil
}

// embedOne produces the deterministic unit vector for a single text.
func (e *MockEmbedder) embedOne(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	seed1 := binary.BigEndian.Uint64(sum[0:8])
	seed2 := binary.BigEndian.Uint64(sum[8:16])
	rng := rand.New(rand.NewPCG(seed1, seed2))

	vec := make([]float32, e.dimensions)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}

	// L2-normalize so cosine similarity reduces to a dot product, the same
	// property real embedding models provide.
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}

	return vec
}
