package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/ragd/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives all metric registrations. Defaults to the
	// global prometheus registerer; tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to the global gatherer.
	MetricsGatherer prometheus.Gatherer
}

// engine is the slice of the pipeline the handlers call.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type engine interface {
	Ingest(ctx context.Context, tenantID, content string, metadata map[string]string) (rag.IngestResult, error)
	Query(ctx context.Context, tenantID, query string, topK int) (rag.QueryResult, error)
	CreateTenant(ctx context.Context, name string) (rag.Tenant, error)
	ListTenants(ctx context.Context) ([]rag.Tenant, error)
}

// Server is the HTTP server that exposes ingestion and query resolution.
type Server struct {
	// engine executes ingestion, queries, and tenant administration.
	engine engine
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// ingestRequest is the JSON body for POST /api/ingest.
type ingestRequest struct {
	// TenantID is the tenant the document is ingested for.
	TenantID string `json:"tenant_id"`
	// Content is the raw document text.
	Content string `json:"content"`
	// Metadata holds optional free-form key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// TenantID is the tenant the query is issued as.
	TenantID string `json:"tenant_id"`
	// Query is the natural-language question.
	Query string `json:"query"`
	// TopK overrides the retrieval depth. Zero applies the configured default.
	TopK int `json:"top_k,omitempty"`
}

// tenantCreateRequest is the JSON body for POST /api/tenants.
type tenantCreateRequest struct {
	// Name is the tenant's display name.
	Name string `json:"name"`
}

// tenantResponse is one tenant in API responses.
type tenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// errorBody is the payload of every non-2xx JSON response.
type errorBody struct {
	// Code is a stable machine-readable error identifier.
	Code string `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
}

// errorResponse is the JSON envelope for errors.
type errorResponse struct {
	Error errorBody `json:"error"`
}
