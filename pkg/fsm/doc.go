/*
Package fsm encodes the legal state transitions for a single supervised
node.

Each node is always in exactly one of four states: healthy, unhealthy,
crashed or restarting. Transitions are pure functions over a NodeRecord
plus two external guards (Env): whether the guardian is active, and
whether a crash is permitted under the cluster availability floor.

	                 Fail              Crash
	  healthy ──────────────▶ unhealthy ──────▶ crashed
	     ▲  ▲                    │  │              │
	     │  │       Recover      │  │              │
	     │  └────────────────────┘  │GuardianRestart
	     │                          ▼              │
	     │   RestartCompletes   restarting ◀───────┘
	     └──────────────────────────┘

Apply never mutates its input; callers get a fresh record back or a
*PreconditionError when a guard fails. The guardian package is the only
writer of live records and is responsible for calling Apply atomically
per node.

Two counters ride along with the state. FailureCount tracks consecutive
bad probes and arms GuardianRestart once it reaches MaxFailures.
RestartCount tracks restarts issued since the budget last replenished
and blocks GuardianRestart at MaxRestarts. ResetRestartBudget refills
the budget whenever a node is observed healthy with zero failures, so
exhausting MaxRestarts during one bout of instability never leaves the
node permanently unrestartable.
*/
package fsm
