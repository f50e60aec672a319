package probe

import (
	"context"
	"errors"
	"os/exec"

	"github.com/meshguard/meshguard/pkg/types"
)

// ExecProber probes a node by running a command and inspecting its exit
// code (e.g. ["ssh", "node2", "systemctl", "is-active", "myservice"])
type ExecProber struct {
	Command []string
}

// NewExecProber creates a new exec prober
func NewExecProber(command []string) *ExecProber {
	return &ExecProber{Command: command}
}

// Probe runs the command. Exit 0 is Healthy, a non-zero exit is
// Unhealthy, a command that could not start is Unreachable, and a
// deadline expiry is Timeout.
func (e *ExecProber) Probe(ctx context.Context) types.ProbeResult {
	if len(e.Command) == 0 {
		return types.ProbeUnreachable
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	err := cmd.Run()
	if err == nil {
		return types.ProbeHealthy
	}

	if timedOut(ctx) {
		return types.ProbeTimeout
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return types.ProbeUnhealthy
	}
	return types.ProbeUnreachable
}

// Kind returns the probe mechanism
func (e *ExecProber) Kind() types.ProbeKind {
	return types.ProbeKindExec
}
