package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/ragd/internal/rag"
)

// newMetricsTestServer builds a Server backed by a fresh isolated registry so
// tests do not pollute prometheus.DefaultRegisterer.
func newMetricsTestServer(t *testing.T, eng engine) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := newFakeServer(eng)
	s.metrics = newServerMetrics(reg)
	return s, reg
}

// counterValue returns the value of the named counter with the given label
// pair, or -1 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	_, reg := newMetricsTestServer(t, &fakeEngine{})

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_IngestCounters(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t, &fakeEngine{
		ingestResult: rag.IngestResult{DocumentID: "d1", ChunksCreated: 4},
	})

	w := postJSON(t, s, s.handleIngest, "/api/ingest", `{"tenant_id":"t","content":"x"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest: got %d", w.Code)
	}

	if got := counterValue(t, reg, "ragd_ingest_documents_total", "outcome", "ok"); got != 1 {
		t.Errorf("documents_total{ok}: want 1, got %v", got)
	}
	if got := counterValue(t, reg, "ragd_ingest_chunks_total", "", ""); got != 4 {
		t.Errorf("chunks_total: want 4, got %v", got)
	}
}

func Test_Metrics_QueryOutcomes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		result  rag.QueryResult
		outcome string
	}{
		{"fresh", rag.QueryResult{Answer: "a", Sources: []rag.Source{{ChunkID: "c1"}}}, "ok"},
		{"cached", rag.QueryResult{Answer: "a", Cached: true}, "cached"},
		{"refused", rag.QueryResult{Answer: rag.RefusalAnswer}, "refused"},
	}
	for _, tc := range cases {
		s, reg := newMetricsTestServer(t, &fakeEngine{queryResult: tc.result})
		w := postJSON(t, s, s.handleQuery, "/api/query", `{"tenant_id":"t","query":"q"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: got %d", tc.name, w.Code)
		}
		if got := counterValue(t, reg, "ragd_query_requests_total", "outcome", tc.outcome); got != 1 {
			t.Errorf("%s: requests_total{%s}: want 1, got %v", tc.name, tc.outcome, got)
		}
	}
}

func Test_Metrics_QueryErrorOutcome(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t, &fakeEngine{queryErr: rag.ErrProviderUnavailable})

	postJSON(t, s, s.handleQuery, "/api/query", `{"tenant_id":"t","query":"q"}`)

	if got := counterValue(t, reg, "ragd_query_requests_total", "outcome", "error"); got != 1 {
		t.Errorf("requests_total{error}: want 1, got %v", got)
	}
}
