package probe

import (
	"context"
	"fmt"

	"github.com/meshguard/meshguard/pkg/types"
)

// Prober is the interface all health probes implement
type Prober interface {
	// Probe checks the node once and returns a verdict. Implementations
	// must honor ctx cancellation and map a deadline expiry to
	// types.ProbeTimeout rather than returning late.
	Probe(ctx context.Context) types.ProbeResult

	// Kind returns the probe mechanism
	Kind() types.ProbeKind
}

// New creates the prober described by the spec
func New(spec types.ProbeSpec) (Prober, error) {
	switch spec.Kind {
	case types.ProbeKindHTTP:
		if spec.Endpoint == "" {
			return nil, fmt.Errorf("http probe requires an endpoint")
		}
		return NewHTTPProber(spec.Endpoint), nil

	case types.ProbeKindTCP:
		if spec.Endpoint == "" {
			return nil, fmt.Errorf("tcp probe requires an endpoint")
		}
		return NewTCPProber(spec.Endpoint), nil

	case types.ProbeKindExec:
		if len(spec.Command) == 0 {
			return nil, fmt.Errorf("exec probe requires a command")
		}
		return NewExecProber(spec.Command), nil

	default:
		return nil, fmt.Errorf("unsupported probe kind: %s", spec.Kind)
	}
}

// timedOut reports whether the context deadline expired
func timedOut(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}
