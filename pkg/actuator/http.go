package actuator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jizhuozhi/go-future"
	"github.com/meshguard/meshguard/pkg/types"
)

// HTTPRestarter restarts a node by POSTing to a restart endpoint, e.g.
// a service manager's admin API or a container orchestrator hook
type HTTPRestarter struct {
	// URL is the restart endpoint (e.g. "http://10.0.0.2:9090/restart")
	URL string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// NewHTTPRestarter creates a new HTTP restarter
func NewHTTPRestarter(url string) *HTTPRestarter {
	return &HTTPRestarter{
		URL:    url,
		Client: &http.Client{},
	}
}

// Restart POSTs to the endpoint in the background and resolves the
// returned future with the terminal outcome. Any transport error or a
// non-2xx response resolves to RestartFailed.
func (h *HTTPRestarter) Restart(ctx context.Context, spec types.NodeSpec) *future.Future[types.RestartOutcome] {
	p := future.NewPromise[types.RestartOutcome]()

	go func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, nil)
		if err != nil {
			p.Set(types.RestartFailed, fmt.Errorf("restart request for node %s: %w", spec.ID, err))
			return
		}

		resp, err := h.Client.Do(req)
		if err != nil {
			p.Set(types.RestartFailed, fmt.Errorf("restart call for node %s: %w", spec.ID, err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			p.Set(types.RestartFailed, fmt.Errorf("restart endpoint for node %s returned %d", spec.ID, resp.StatusCode))
			return
		}
		p.Set(types.RestartCompleted, nil)
	}()

	return p.Future()
}
