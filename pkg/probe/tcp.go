package probe

import (
	"context"
	"errors"
	"net"

	"github.com/meshguard/meshguard/pkg/types"
)

// TCPProber probes a node by opening a TCP connection
type TCPProber struct {
	// Address is the TCP address to connect to (e.g. "10.0.0.2:6379")
	Address string
}

// NewTCPProber creates a new TCP prober
func NewTCPProber(address string) *TCPProber {
	return &TCPProber{Address: address}
}

// Probe attempts the connection. A successful dial is Healthy; a refused
// or unroutable connection is Unreachable; a deadline expiry is Timeout.
func (t *TCPProber) Probe(ctx context.Context) types.ProbeResult {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
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
	conn.Close()
	return types.ProbeHealthy
}

// Kind returns the probe mechanism
func (t *TCPProber) Kind() types.ProbeKind {
	return types.ProbeKindTCP
}
