// Package ingestion loads document content for the `ragd ingest` CLI command.
// A source may be a local file path, an HTTP(S) URL, or "-" for stdin; the
// loader fetches the raw text and derives baseline metadata (source and
// title) that is stored alongside the document.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxContentBytes bounds how much content a single source may yield. Larger
// inputs almost certainly indicate a binary or a mistake, not a document.
const maxContentBytes = 10 << 20

// Config holds loader configuration.
type Config struct {
	// HTTPTimeout is the timeout for each URL fetch. Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Loader reads document content from files, URLs, or stdin.
type Loader struct {
	cfg        *Config
	httpClient *http.Client
	// stdin is swappable in tests.
	stdin io.Reader
}

// NewLoader constructs a Loader with the provided config.
func NewLoader(cfg *Config) *Loader {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ragd/1.0 (document ingestion)"
	}
	return &Loader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		stdin:      os.Stdin,
	}
}

// Load reads the content of source and returns it together with derived
// metadata. source is "-" for stdin, an http(s) URL, or a local file path.
func (l *Loader) Load(ctx context.Context, source string) (string, map[string]string, error) {
	var (
		content string
		err     error
	)
	switch {
	case source == "-":
		content, err = l.readStdin()
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		content, err = l.fetch(ctx, source)
	default:
		content, err = l.readFile(source)
	}
	if err != nil {
		return "", nil, err
	}

	metadata := map[string]string{"source": source}
	if title := deriveTitle(content); title != "" {
		metadata["title"] = title
	}
	return content, metadata, nil
}

// readStdin consumes stdin up to the content limit.
func (l *Loader) readStdin() (string, error) {
	data, err := io.ReadAll(io.LimitReader(l.stdin, maxContentBytes))
	if err != nil {
		return "", fmt.Errorf("ingestion: read stdin: %w", err)
	}
	return string(data), nil
}

// readFile reads a local file.
func (l *Loader) readFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("ingestion: stat %s: %w", path, err)
	}
	if info.Size() > maxContentBytes {
		return "", fmt.Errorf("ingestion: %s is %d bytes, limit is %d", path, info.Size(), maxContentBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("ingestion: read %s: %w", path, err)
	}
	return string(data), nil
}

// fetch retrieves the raw text content of a URL.
func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("ingestion: creating request: %w", err)
	}
	req.Header.Set("User-Agent", l.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ingestion: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ingestion: unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return "", fmt.Errorf("ingestion: reading body: %w", err)
	}
	return string(body), nil
}

// deriveTitle returns the first non-empty line of content, trimmed and capped
// at 120 runes, or "" when nothing usable exists.
func deriveTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > 120 {
			return string(runes[:120])
		}
		return line
	}
	return ""
}
