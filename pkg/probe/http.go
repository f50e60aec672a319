package probe

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/meshguard/meshguard/pkg/types"
)

// HTTPProber probes a node via an HTTP health endpoint
type HTTPProber struct {
	// URL is the full health endpoint URL (e.g. "http://10.0.0.2:8080/health")
	URL string

	// Method is the HTTP method to use (default: GET)
	Method string

	// ExpectedStatusMin is the minimum acceptable status code (default: 200)
	ExpectedStatusMin int

	// ExpectedStatusMax is the maximum acceptable status code (default: 399)
	ExpectedStatusMax int

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// NewHTTPProber creates a new HTTP prober
func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{
		URL:               url,
		Method:            "GET",
		ExpectedStatusMin: 200,
		ExpectedStatusMax: 399,
		Client:            &http.Client{},
	}
}

// Probe performs the HTTP check. A response outside the expected status
// range is Unhealthy; a connection-level error is Unreachable; a context
// deadline expiry is Timeout.
func (h *HTTPProber) Probe(ctx context.Context) types.ProbeResult {
	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, nil)
	if err != nil {
		return types.ProbeUnreachable
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		if timedOut(ctx) {
			return types.ProbeTimeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return types.ProbeTimeout
		}
		return types.ProbeUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= h.ExpectedStatusMin && resp.StatusCode <= h.ExpectedStatusMax {
		return types.ProbeHealthy
	}
	return types.ProbeUnhealthy
}

// Kind returns the probe mechanism
func (h *HTTPProber) Kind() types.ProbeKind {
	return types.ProbeKindHTTP
}

// WithStatusRange sets the expected status code range
func (h *HTTPProber) WithStatusRange(min, max int) *HTTPProber {
	h.ExpectedStatusMin = min
	h.ExpectedStatusMax = max
	return h
}
