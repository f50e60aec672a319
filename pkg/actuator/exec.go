package actuator

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/jizhuozhi/go-future"
	"github.com/meshguard/meshguard/pkg/types"
)

// ExecRestarter restarts a node by running a command, e.g.
// ["ssh", "node2", "systemctl", "restart", "myservice"]
type ExecRestarter struct {
	Command []string
}

// NewExecRestarter creates a new exec restarter
func NewExecRestarter(command []string) *ExecRestarter {
	return &ExecRestarter{Command: command}
}

// Restart runs the command in the background and resolves the returned
// future with the terminal outcome. A non-zero exit, a start failure or
// a context deadline expiry all resolve to RestartFailed.
func (e *ExecRestarter) Restart(ctx context.Context, spec types.NodeSpec) *future.Future[types.RestartOutcome] {
	p := future.NewPromise[types.RestartOutcome]()

	go func() {
		cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
		if err := cmd.Run(); err != nil {
			p.Set(types.RestartFailed, fmt.Errorf("restart command for node %s: %w", spec.ID, err))
			return
		}
		p.Set(types.RestartCompleted, nil)
	}()

	return p.Future()
}
