package server

import (
	"context"
	"fmt"
	"net/http"
)

// EndpointPinger probes an HTTP endpoint with a GET request. It is used for
// model backends that expose a cheap liveness URL (e.g. the Ollama root
// endpoint), avoiding token-consuming generate calls during readiness checks.
type EndpointPinger struct {
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
	// url is the endpoint probed by Ping.
	url string
	// client is the HTTP client used for probes.
	client *http.Client
}

// NewEndpointPinger constructs an EndpointPinger for the given backend name
// and probe URL.
func NewEndpointPinger(name, url string) *EndpointPinger {
	return &EndpointPinger{name: name, url: url, client: http.DefaultClient}
}

// Name returns the backend label used in readiness responses.
func (p *EndpointPinger) Name() string { return p.name }

// Ping issues a GET against the probe URL. Any response below 500 counts as
// reachable; connection errors and 5xx responses do not.
func (p *EndpointPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe %s: status %d", p.url, resp.StatusCode)
	}
	return nil
}
