/*
Package guardian implements the controller that supervises the node set
and decides when a node must be restarted.

The guardian is a single authority: every NodeRecord mutation goes
through it, serialized behind one mutex, so transitions are atomic per
node and the cluster-wide availability floor (at least one node must
stay non-crashed) is checked under the same lock that applies a crash.
Probes and restart actuations are blocking I/O and run outside the
lock; only their results are fed back in.

# Decisions

Observe records a probe verdict and applies whichever transitions fit
the node's current state: a healthy node fails on its first bad probe,
an unreachable node is additionally marked crashed (unless the
availability floor forbids it, in which case the crash is refused but
the failure still counts), and consecutive bad probes accumulate in the
failure counter up to MaxFailures.

MaybeRestart fires only when all preconditions hold — guardian active,
failure counter at threshold, node unhealthy or crashed, restart budget
not exhausted — and otherwise answers with a structured reason
(not-active, already-restarting, below-threshold, budget-exhausted).
An exhausted budget is a warning for operators, not grounds for silent
retries: the node is left as-is until it heals on its own or an
operator intervenes with ForceRestart.

Tick replenishes the restart budget of every node observed healthy with
zero failures, which is the fix that keeps MaxRestarts from acting as a
lifetime cap: a node that spends its budget during one bout of
instability and then stabilizes becomes restartable again.

# Error taxonomy

Nothing here is fatal to the process. A single bad probe only counts; a
sustained failure issues a restart and an informational event; budget
exhaustion and an actuator failure surface as warnings; a refused crash
surfaces as a critical alert since it signals correlated failures
across the node set.
*/
package guardian
