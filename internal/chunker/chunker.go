// Package chunker splits document text into overlapping spans for embedding.
// The segmentation is deterministic: a given (text, size, overlap) input
// always produces the same spans, which keeps re-ingestion and tests
// reproducible.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultChunkSize is the span length in runes used when no size is
	// configured.
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of runes shared between consecutive
	// spans when no overlap is configured.
	DefaultOverlap = 200

	// maxLookback caps the boundary-snapping window so very large chunk
	// sizes do not scan arbitrarily far backwards.
	maxLookback = 48
)

// Split segments text into overlapping spans of at most size runes.
//
// Spans start at offset 0; each subsequent start advances by the previous
// span's length minus overlap. Splitting stops once the remaining content is
// no longer than overlap — the final partial span is emitted once and never
// re-split. Each span prefers to end at a sentence or whitespace boundary
// within a small lookback window so words are not cut mid-way; when no
// boundary exists in the window the span ends at exactly size runes.
//
// Invalid parameters are normalized: size <= 0 falls back to
// DefaultChunkSize, and overlap outside [0, size) falls back to 0.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)
	if n <= size {
		return []string{text}
	}

	// The lookback window must stay smaller than the step (size - overlap)
	// or a snapped span could fail to advance past the previous start.
	window := size / 10
	if window > maxLookback {
		window = maxLookback
	}
	if window >= size-overlap {
		window = size - overlap - 1
	}

	var spans []string
	start := 0
	for {
		remaining := n - start
		if remaining <= 0 {
			break
		}
		if start > 0 && remaining <= overlap {
			// The tail is already fully contained in the previous span.
			break
		}

		end := start + size
		if end >= n {
			spans = append(spans, string(runes[start:n]))
			break
		}

		end = snapToBoundary(runes, end, window)
		spans = append(spans, string(runes[start:end]))
		start = end - overlap
	}

	return spans
}

// snapToBoundary scans backwards from end, at most window runes, for a
// sentence terminator or whitespace and returns the offset just past it.
// Returns end unchanged when no boundary exists within the window.
func snapToBoundary(runes []rune, end, window int) int {
	for i := end - 1; i > end-1-window && i > 0; i-- {
		if isBoundary(runes[i]) {
			return i + 1
		}
	}
	return end
}

// isBoundary reports whether r is a rune a span may end after.
func isBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return unicode.IsSpace(r)
}
