package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/rag"
)

// maxBodyBytes bounds request bodies so one oversized document cannot exhaust
// memory. 10 MiB comfortably fits any reasonable text document.
const maxBodyBytes = 10 << 20

// handleIngest handles POST /api/ingest: chunk, embed, and persist one
// document for a tenant.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant", "tenant_id is required")
		return
	}

	start := time.Now()
	result, err := s.engine.Ingest(r.Context(), req.TenantID, req.Content, req.Metadata)
	if err != nil {
		s.metrics.ingestDocumentsTotal.WithLabelValues(outcomeError).Inc()
		writeEngineError(w, r, err)
		return
	}
	s.metrics.ingestDocumentsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.ingestChunksTotal.Add(float64(result.ChunksCreated))
	s.metrics.ingestDurationSeconds.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusCreated, result)
}

// handleQuery handles POST /api/query: resolve a tenant's query from cache,
// retrieval, or refusal.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant", "tenant_id is required")
		return
	}

	start := time.Now()
	result, err := s.engine.Query(r.Context(), req.TenantID, req.Query, req.TopK)
	if err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues(outcomeError).Inc()
		writeEngineError(w, r, err)
		return
	}
	outcome := outcomeOK
	switch {
	case result.Cached:
		outcome = outcomeCached
	case result.Answer == rag.RefusalAnswer:
		outcome = outcomeRefused
	}
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, result)
}

// handleTenantCreate handles POST /api/tenants.
func (s *Server) handleTenantCreate(w http.ResponseWriter, r *http.Request) {
	var req tenantCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}

	tenant, err := s.engine.CreateTenant(r.Context(), req.Name)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenantResponse{ID: tenant.ID, Name: tenant.Name, CreatedAt: tenant.CreatedAt})
}

// handleTenantList handles GET /api/tenants.
func (s *Server) handleTenantList(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.engine.ListTenants(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	resp := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, tenantResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into dst, writing a 400 and returning
// false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return false
	}
	return true
}

// writeEngineError maps the pipeline's error taxonomy onto HTTP statuses.
// Internal details of storage failures are logged, not leaked to clients.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rag.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "tenant_not_found", "tenant does not exist")
	case errors.Is(err, rag.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "empty_content", "content must not be empty")
	case errors.Is(err, rag.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", "query must not be empty")
	case errors.Is(err, rag.ErrProviderUnavailable):
		logging.FromContext(r.Context()).Error("provider unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "provider_unavailable", "a model backend is unavailable, retry later")
	default:
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// writeError writes a JSON error envelope with the given status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
