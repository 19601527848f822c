package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// okHandler verifies that allowed requests reach the downstream handler.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// rateLimited sends one request from addr through h and reports whether it
// was rejected with 429.
func rateLimited(h http.Handler, addr string) bool {
	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code == http.StatusTooManyRequests
}

func TestRateLimit_BurstAllowedThenBlocked(t *testing.T) {
	t.Parallel()

	// Near-zero refill rate: exactly the burst passes, then 429.
	rl, stop := newRateLimiter(0.001, 3, slog.Default())
	defer stop()
	h := rl.middleware(okHandler)

	for i := range 3 {
		if rateLimited(h, "10.0.0.1:4000") {
			t.Fatalf("request %d within burst was rejected", i)
		}
	}
	if !rateLimited(h, "10.0.0.1:4000") {
		t.Error("request beyond burst was not rejected")
	}
}

func TestRateLimit_RetryAfterHeader(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 1, slog.Default())
	defer stop()
	h := rl.middleware(okHandler)

	// Consume the single burst token, then expect a guided rejection.
	rateLimited(h, "10.0.0.2:4000")

	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.RemoteAddr = "10.0.0.2:4000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response is missing the Retry-After header")
	}
}

// Exhausting one client's bucket must not affect another client.
func TestRateLimit_PerIPIsolation(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 1, slog.Default())
	defer stop()
	h := rl.middleware(okHandler)

	for range 4 {
		rateLimited(h, "172.16.0.1:5000")
	}
	if rateLimited(h, "172.16.0.2:5000") {
		t.Error("second client was throttled by the first client's bucket")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"172.16.0.9:443", "172.16.0.9"},
		{"::1:8080", "::1"},
		{"noport", "noport"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if got := clientIP(req); got != tc.want {
			t.Errorf("remoteAddr=%q: got %q, want %q", tc.remoteAddr, got, tc.want)
		}
	}
}
