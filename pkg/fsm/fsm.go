package fsm

import (
	"fmt"
	"time"

	"github.com/meshguard/meshguard/pkg/types"
)

// Transition names a legal node state change
type Transition string

const (
	// Fail moves a healthy node to unhealthy on its first bad probe.
	Fail Transition = "fail"

	// Crash moves a non-crashed, non-restarting node to crashed. Only
	// permitted while the availability floor holds (Env.CrashAllowed).
	Crash Transition = "crash"

	// HealthCheckHealthy records a good probe on a healthy node and
	// clears the failure counter.
	HealthCheckHealthy Transition = "health_check_healthy"

	// HealthCheckUnhealthy records a bad probe on an unhealthy or
	// crashed node, incrementing the failure counter up to its cap.
	HealthCheckUnhealthy Transition = "health_check_unhealthy"

	// GuardianRestart issues a restart: the node enters restarting,
	// consumes one unit of restart budget and clears its failures.
	GuardianRestart Transition = "guardian_restart"

	// RestartCompletes finishes a restart, returning the node to healthy.
	RestartCompletes Transition = "restart_completes"

	// RestartAborted abandons a restart whose actuation failed or timed
	// out; the node reverts to unhealthy and is re-evaluated by probes.
	RestartAborted Transition = "restart_aborted"

	// Recover moves an unhealthy node that probed healthy back to
	// healthy and clears its failures.
	Recover Transition = "recover"

	// ResetRestartBudget replenishes the restart budget of a node that
	// is healthy with no accumulated failures. This turns MaxRestarts
	// from a lifetime cap into a per-period-of-instability cap: a node
	// that exhausts its budget and later stabilizes becomes restartable
	// again instead of staying dead forever.
	ResetRestartBudget Transition = "reset_restart_budget"
)

// Limits are the configured counter bounds
type Limits struct {
	MaxFailures int
	MaxRestarts int
}

// Env carries the guards that depend on state outside the node itself.
// CrashAllowed is the availability floor check (crashed nodes must stay
// strictly below |nodes|-1 after the change); GuardianActive gates
// restart issuance.
type Env struct {
	GuardianActive bool
	CrashAllowed   bool
}

// PreconditionError reports a transition whose guard did not hold.
// It is an expected, recoverable outcome: callers check preconditions
// with Enabled or branch on the returned error.
type PreconditionError struct {
	Transition Transition
	Node       string
	Reason     string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("transition %s not enabled for node %s: %s", e.Transition, e.Node, e.Reason)
}

// Apply executes one transition against a copy of the record and returns
// the updated record. The input record is never mutated; a
// *PreconditionError is returned when the guard fails, with the record
// returned unchanged.
func Apply(rec types.NodeRecord, tr Transition, lim Limits, env Env, now time.Time) (types.NodeRecord, error) {
	if reason := disabledReason(rec, tr, lim, env); reason != "" {
		return rec, &PreconditionError{Transition: tr, Node: rec.ID, Reason: reason}
	}

	switch tr {
	case Fail:
		rec.State = types.NodeUnhealthy
		rec.LastTransition = now
	case Crash:
		rec.State = types.NodeCrashed
		rec.LastTransition = now
	case HealthCheckHealthy:
		rec.FailureCount = 0
	case HealthCheckUnhealthy:
		rec.FailureCount++
	case GuardianRestart:
		rec.State = types.NodeRestarting
		rec.RestartCount++
		rec.FailureCount = 0
		rec.LastTransition = now
	case RestartCompletes:
		rec.State = types.NodeHealthy
		rec.LastTransition = now
	case RestartAborted:
		rec.State = types.NodeUnhealthy
		rec.LastTransition = now
	case Recover:
		rec.State = types.NodeHealthy
		rec.FailureCount = 0
		rec.LastTransition = now
	case ResetRestartBudget:
		rec.RestartCount = 0
	}

	return rec, nil
}

// Enabled reports whether the transition's precondition holds.
func Enabled(rec types.NodeRecord, tr Transition, lim Limits, env Env) bool {
	return disabledReason(rec, tr, lim, env) == ""
}

func disabledReason(rec types.NodeRecord, tr Transition, lim Limits, env Env) string {
	switch tr {
	case Fail:
		if rec.State != types.NodeHealthy {
			return fmt.Sprintf("state is %s, want healthy", rec.State)
		}
	case Crash:
		if rec.State != types.NodeHealthy && rec.State != types.NodeUnhealthy {
			return fmt.Sprintf("state is %s, want healthy or unhealthy", rec.State)
		}
		if !env.CrashAllowed {
			return "availability floor would be violated"
		}
	case HealthCheckHealthy:
		if rec.State != types.NodeHealthy {
			return fmt.Sprintf("state is %s, want healthy", rec.State)
		}
	case HealthCheckUnhealthy:
		if rec.State != types.NodeUnhealthy && rec.State != types.NodeCrashed {
			return fmt.Sprintf("state is %s, want unhealthy or crashed", rec.State)
		}
		if rec.FailureCount >= lim.MaxFailures {
			return "failure count already at cap"
		}
	case GuardianRestart:
		if !env.GuardianActive {
			return "guardian is not active"
		}
		if rec.State != types.NodeUnhealthy && rec.State != types.NodeCrashed {
			return fmt.Sprintf("state is %s, want unhealthy or crashed", rec.State)
		}
		if rec.FailureCount < lim.MaxFailures {
			return fmt.Sprintf("failure count %d below threshold %d", rec.FailureCount, lim.MaxFailures)
		}
		if rec.RestartCount >= lim.MaxRestarts {
			return "restart budget exhausted"
		}
	case RestartCompletes, RestartAborted:
		if rec.State != types.NodeRestarting {
			return fmt.Sprintf("state is %s, want restarting", rec.State)
		}
	case Recover:
		if rec.State != types.NodeUnhealthy {
			return fmt.Sprintf("state is %s, want unhealthy", rec.State)
		}
	case ResetRestartBudget:
		if rec.State != types.NodeHealthy {
			return fmt.Sprintf("state is %s, want healthy", rec.State)
		}
		if rec.FailureCount != 0 {
			return fmt.Sprintf("failure count is %d, want 0", rec.FailureCount)
		}
		if rec.RestartCount == 0 {
			return "restart count already 0"
		}
	default:
		return fmt.Sprintf("unknown transition %q", tr)
	}
	return ""
}
