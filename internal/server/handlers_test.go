package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/ragd/internal/rag"
)

// fakeEngine implements the engine interface for handler tests.
type fakeEngine struct {
	ingestResult rag.IngestResult
	ingestErr    error
	queryResult  rag.QueryResult
	queryErr     error
	tenants      []rag.Tenant
	tenantErr    error

	lastTenantID string
	lastQuery    string
	lastTopK     int
}

func (f *fakeEngine) Ingest(_ context.Context, tenantID, _ string, _ map[string]string) (rag.IngestResult, error) {
	f.lastTenantID = tenantID
	return f.ingestResult, f.ingestErr
}

func (f *fakeEngine) Query(_ context.Context, tenantID, query string, topK int) (rag.QueryResult, error) {
	f.lastTenantID = tenantID
	f.lastQuery = query
	f.lastTopK = topK
	return f.queryResult, f.queryErr
}

func (f *fakeEngine) CreateTenant(_ context.Context, name string) (rag.Tenant, error) {
	if f.tenantErr != nil {
		return rag.Tenant{}, f.tenantErr
	}
	return rag.Tenant{ID: "t-new", Name: name, CreatedAt: time.Now()}, nil
}

func (f *fakeEngine) ListTenants(context.Context) ([]rag.Tenant, error) {
	return f.tenants, f.tenantErr
}

// newTestServer builds a minimal *Server for handler tests, backed by a
// hermetic metrics registry.
func newTestServer() *Server {
	return newFakeServer(&fakeEngine{})
}

func newFakeServer(eng engine) *Server {
	return &Server{
		engine:  eng,
		cfg:     &Config{},
		log:     slog.Default(),
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}

func postJSON(t *testing.T, s *Server, handler func(http.ResponseWriter, *http.Request), path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v — body: %s", err, w.Body.String())
	}
	return resp
}

func TestHandleIngest_Success(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{ingestResult: rag.IngestResult{DocumentID: "doc-1", ChunksCreated: 3}}
	s := newFakeServer(eng)

	w := postJSON(t, s, s.handleIngest, "/api/ingest",
		`{"tenant_id":"tenant-a","content":"some text","metadata":{"source":"test"}}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp rag.IngestResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DocumentID != "doc-1" || resp.ChunksCreated != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if eng.lastTenantID != "tenant-a" {
		t.Errorf("engine called with tenant %q", eng.lastTenantID)
	}
}

func TestHandleIngest_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `not-json`},
		{"missing tenant", `{"content":"text"}`},
	}
	for _, tc := range cases {
		w := postJSON(t, s, s.handleIngest, "/api/ingest", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
		}
	}
}

func TestHandleIngest_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{rag.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found"},
		{rag.ErrEmptyContent, http.StatusBadRequest, "empty_content"},
		{rag.ErrProviderUnavailable, http.StatusServiceUnavailable, "provider_unavailable"},
		{errors.New("disk exploded"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		s := newFakeServer(&fakeEngine{ingestErr: tc.err})
		w := postJSON(t, s, s.handleIngest, "/api/ingest", `{"tenant_id":"t","content":"x"}`)
		if w.Code != tc.wantStatus {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.wantStatus, w.Code)
		}
		if resp := decodeError(t, w); resp.Error.Code != tc.wantCode {
			t.Errorf("%v: expected code %q, got %q", tc.err, tc.wantCode, resp.Error.Code)
		}
	}
}

func TestHandleIngest_InternalErrorNotLeaked(t *testing.T) {
	t.Parallel()
	s := newFakeServer(&fakeEngine{ingestErr: errors.New("dsn=postgres://user:hunter2@db")})

	w := postJSON(t, s, s.handleIngest, "/api/ingest", `{"tenant_id":"t","content":"x"}`)

	if strings.Contains(w.Body.String(), "hunter2") {
		t.Error("internal error detail leaked to client")
	}
}

func TestHandleQuery_Success(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{queryResult: rag.QueryResult{
		Answer:  "the answer",
		Sources: []rag.Source{{DocumentID: "d1", ChunkID: "c1", ChunkText: "text", SimilarityScore: 0.9}},
	}}
	s := newFakeServer(eng)

	w := postJSON(t, s, s.handleQuery, "/api/query", `{"tenant_id":"tenant-a","query":"what?","top_k":3}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp rag.QueryResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "the answer" || len(resp.Sources) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if eng.lastQuery != "what?" || eng.lastTopK != 3 {
		t.Errorf("engine called with query=%q topK=%d", eng.lastQuery, eng.lastTopK)
	}
}

func TestHandleQuery_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err        error
		wantStatus int
	}{
		{rag.ErrTenantNotFound, http.StatusNotFound},
		{rag.ErrEmptyQuery, http.StatusBadRequest},
		{rag.ErrProviderUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		s := newFakeServer(&fakeEngine{queryErr: tc.err})
		w := postJSON(t, s, s.handleQuery, "/api/query", `{"tenant_id":"t","query":"q"}`)
		if w.Code != tc.wantStatus {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.wantStatus, w.Code)
		}
	}
}

func TestHandleQuery_RefusalIs200(t *testing.T) {
	t.Parallel()
	s := newFakeServer(&fakeEngine{queryResult: rag.QueryResult{Answer: rag.RefusalAnswer}})

	w := postJSON(t, s, s.handleQuery, "/api/query", `{"tenant_id":"t","query":"q"}`)

	if w.Code != http.StatusOK {
		t.Errorf("refusal must be a 200 response, got %d", w.Code)
	}
	var resp rag.QueryResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != rag.RefusalAnswer {
		t.Errorf("want refusal answer, got %q", resp.Answer)
	}
}

func TestHandleTenantCreate(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := postJSON(t, s, s.handleTenantCreate, "/api/tenants", `{"name":"Acme"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp tenantResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "Acme" || resp.ID == "" {
		t.Errorf("unexpected tenant: %+v", resp)
	}
}

func TestHandleTenantCreate_MissingName(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	w := postJSON(t, s, s.handleTenantCreate, "/api/tenants", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleTenantList(t *testing.T) {
	t.Parallel()
	s := newFakeServer(&fakeEngine{tenants: []rag.Tenant{
		{ID: "t1", Name: "Acme"},
		{ID: "t2", Name: "Beta"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	w := httptest.NewRecorder()
	s.handleTenantList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp []tenantResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != "t1" {
		t.Errorf("unexpected tenants: %+v", resp)
	}
}
