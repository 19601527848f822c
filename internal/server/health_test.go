package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakePinger is a test double for the Pinger interface.
type fakePinger struct {
	name string
	err  error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// callReady runs GET /api/ready against a server with the given pingers and
// returns the status code and decoded body.
func callReady(t *testing.T, pingers ...Pinger) (int, readyResponse) {
	t.Helper()
	s := newTestServer()
	s.pingers = pingers

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode ready response: %v", err)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	return w.Code, resp
}

func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 — body: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	code, resp := callReady(t)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !resp.Ready || len(resp.Checks) != 0 {
		t.Errorf("want ready with no checks, got ready=%v checks=%d", resp.Ready, len(resp.Checks))
	}
}

func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	code, resp := callReady(t,
		&fakePinger{name: "sqlite"},
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "redis"},
	)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !resp.Ready {
		t.Error("want ready:true with all probes healthy")
	}
	if len(resp.Checks) != 3 {
		t.Fatalf("got %d checks, want 3", len(resp.Checks))
	}
	for _, c := range resp.Checks {
		if !c.OK || c.Error != "" {
			t.Errorf("check %q: ok=%v error=%q, want healthy", c.Name, c.OK, c.Error)
		}
	}
}

func TestHandleReady_FailingDependency(t *testing.T) {
	t.Parallel()

	code, resp := callReady(t,
		&fakePinger{name: "sqlite"},
		&fakePinger{name: "qdrant", err: errors.New("connection refused")},
	)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Ready {
		t.Error("want ready:false with a failing probe")
	}

	for _, c := range resp.Checks {
		switch c.Name {
		case "sqlite":
			if !c.OK {
				t.Error("sqlite check: want ok:true")
			}
		case "qdrant":
			if c.OK || c.Error == "" {
				t.Errorf("qdrant check: ok=%v error=%q, want a reported failure", c.OK, c.Error)
			}
		}
	}
}

func TestHandleReady_AllFailing(t *testing.T) {
	t.Parallel()

	code, resp := callReady(t,
		&fakePinger{name: "sqlite", err: errors.New("database locked")},
		&fakePinger{name: "redis", err: errors.New("connection refused")},
	)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Ready {
		t.Error("want ready:false")
	}
	for _, c := range resp.Checks {
		if c.OK {
			t.Errorf("check %q: want ok:false", c.Name)
		}
	}
}
