package embedder

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewMockEmbedder(256)
	b := NewMockEmbedder(256)

	va, err := a.Embed(context.Background(), []string{"the same text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	vb, err := b.Embed(context.Background(), []string{"the same text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	for i := range va[0] {
		if va[0][i] != vb[0][i] {
			t.Fatalf("component %d differs across instances: %v vs %v", i, va[0][i], vb[0][i])
		}
	}
}

func TestMockEmbedder_DistinctTextsDiverge(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(128)
	vecs, err := e.Embed(context.Background(), []string{"first text", "second text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}

	same := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{"normalize me"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var norm float64
	for _, c := range vecs[0] {
		norm += float64(c) * float64(c)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestMockEmbedder_DimensionFallback(t *testing.T) {
	t.Parallel()

	if got := NewMockEmbedder(0).Dimensions(); got != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", got)
	}
	if got := NewMockEmbedder(-5).Dimensions(); got != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", got)
	}
	if got := NewMockEmbedder(42).Dimensions(); got != 42 {
		t.Errorf("Dimensions() = %d, want 42", got)
	}
}
