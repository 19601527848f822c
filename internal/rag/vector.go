package rag

import (
	"math"
)

// CosineDistance returns 1 - cosine similarity of a and b, in [0, 2].
// Smaller means more similar. Returns 1 (orthogonal) when either vector is
// zero-length or the dimensions do not match, so malformed vectors rank last
// instead of panicking.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}

	sim := dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	return 1 - sim
}
