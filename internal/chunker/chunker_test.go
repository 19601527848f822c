package chunker

import (
	"strings"
	"testing"
)

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "\n\t\n"} {
		if got := Split(text, 100, 20); got != nil {
			t.Errorf("Split(%q) = %v, want nil", text, got)
		}
	}
}

func TestSplit_ShortTextIsSingleSpan(t *testing.T) {
	t.Parallel()

	text := "a short document that fits in one span"
	got := Split(text, 1000, 200)
	if len(got) != 1 || got[0] != text {
		t.Fatalf("Split = %v, want single span equal to input", got)
	}
}

func TestSplit_NormalizesInvalidParameters(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 50)

	// size <= 0 falls back to the default, which fits this text whole.
	if got := Split(text, 0, 10); len(got) != 1 {
		t.Errorf("Split with size 0: got %d spans, want 1", len(got))
	}
	// overlap >= size falls back to 0 and must still terminate.
	got := Split(text, 50, 50)
	if len(got) < 2 {
		t.Errorf("Split with overlap == size: got %d spans, want several", len(got))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	a := Split(text, 200, 40)
	b := Split(text, 200, 40)
	if len(a) != len(b) {
		t.Fatalf("span counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("span %d differs between runs", i)
		}
	}
}

// Consecutive spans share exactly overlap runes, and stripping that prefix
// from every span after the first reconstructs the trimmed input.
func TestSplit_OverlapReconstructsText(t *testing.T) {
	t.Parallel()

	const size, overlap = 120, 30
	text := strings.TrimSpace(strings.Repeat("All work and no play makes for dull documents. ", 30))
	spans := Split(text, size, overlap)
	if len(spans) < 3 {
		t.Fatalf("got %d spans, want at least 3", len(spans))
	}

	var b strings.Builder
	b.WriteString(spans[0])
	for _, span := range spans[1:] {
		runes := []rune(span)
		if len(runes) <= overlap {
			t.Fatalf("span %q shorter than overlap %d", span, overlap)
		}
		b.WriteString(string(runes[overlap:]))
	}
	if b.String() != text {
		t.Errorf("reconstructed text differs from input")
	}
}

func TestSplit_SnapsToSentenceBoundary(t *testing.T) {
	t.Parallel()

	text := strings.TrimSpace(strings.Repeat("Sentence one ends here. Sentence two follows it. ", 20))
	spans := Split(text, 150, 20)
	if len(spans) < 2 {
		t.Fatalf("got %d spans, want at least 2", len(spans))
	}
	for i, span := range spans[:len(spans)-1] {
		runes := []rune(span)
		last := runes[len(runes)-1]
		if !isBoundary(last) {
			t.Errorf("span %d ends mid-word with %q", i, last)
		}
	}
}

func TestSplit_SpansNeverExceedSize(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 5000)
	for _, span := range Split(text, 700, 100) {
		if n := len([]rune(span)); n > 700 {
			t.Errorf("span length %d exceeds size 700", n)
		}
	}
}
