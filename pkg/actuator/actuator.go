package actuator

import (
	"context"
	"fmt"

	"github.com/jizhuozhi/go-future"
	"github.com/meshguard/meshguard/pkg/types"
)

// Restarter performs the actual restart of a node. Restart returns
// immediately with a future that resolves to the terminal outcome; the
// restart itself runs in the background. Implementations must honor ctx
// so a configured restart timeout bounds how long the future can stay
// unresolved.
type Restarter interface {
	Restart(ctx context.Context, spec types.NodeSpec) *future.Future[types.RestartOutcome]
}

// New creates the restarter described by the spec
func New(spec types.RestartSpec) (Restarter, error) {
	switch spec.Kind {
	case types.RestartKindExec:
		if len(spec.Command) == 0 {
			return nil, fmt.Errorf("exec restart requires a command")
		}
		return NewExecRestarter(spec.Command), nil

	case types.RestartKindHTTP:
		if spec.Endpoint == "" {
			return nil, fmt.Errorf("http restart requires an endpoint")
		}
		return NewHTTPRestarter(spec.Endpoint), nil

	default:
		return nil, fmt.Errorf("unsupported restart kind: %s", spec.Kind)
	}
}
