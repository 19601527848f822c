package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_Loader_File(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("# Runbook\n\nRestart the gateway first."), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil)
	content, metadata, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(content, "Restart the gateway") {
		t.Errorf("unexpected content: %q", content)
	}
	if metadata["source"] != path {
		t.Errorf("source metadata: got %q", metadata["source"])
	}
	if metadata["title"] != "Runbook" {
		t.Errorf("title metadata: got %q", metadata["title"])
	}
}

func Test_Loader_FileMissing(t *testing.T) {
	t.Parallel()
	l := NewLoader(nil)
	if _, _, err := l.Load(context.Background(), "/no/such/file.txt"); err == nil {
		t.Error("want error for missing file")
	}
}

func Test_Loader_URL(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "ragd/") {
			t.Errorf("unexpected user agent %q", ua)
		}
		_, _ = w.Write([]byte("remote document body"))
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(nil)
	content, metadata, err := l.Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if content != "remote document body" {
		t.Errorf("unexpected content: %q", content)
	}
	if metadata["source"] != srv.URL {
		t.Errorf("source metadata: got %q", metadata["source"])
	}
}

func Test_Loader_URLNon200(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(nil)
	if _, _, err := l.Load(context.Background(), srv.URL); err == nil {
		t.Error("want error for non-200 response")
	}
}

func Test_Loader_Stdin(t *testing.T) {
	t.Parallel()
	l := NewLoader(nil)
	l.stdin = strings.NewReader("piped content")

	content, metadata, err := l.Load(context.Background(), "-")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if content != "piped content" {
		t.Errorf("unexpected content: %q", content)
	}
	if metadata["source"] != "-" {
		t.Errorf("source metadata: got %q", metadata["source"])
	}
}

func Test_DeriveTitle(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"# Heading\nbody", "Heading"},
		{"\n\n  first line  \n", "first line"},
		{"", ""},
		{strings.Repeat("x", 300), strings.Repeat("x", 120)},
	}
	for _, tc := range cases {
		if got := deriveTitle(tc.in); got != tc.want {
			t.Errorf("deriveTitle(%.20q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
