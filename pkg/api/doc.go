/*
Package api serves the guardian's admin HTTP interface.

Read side: GET /v1/state returns the full cluster snapshot (guardian
active flag, last probed node, per-node state and counters), /v1/nodes
and /v1/nodes/{id} narrow it down, and /v1/events returns a bounded
ring of recent guardian events.

Control side: POST /v1/active toggles whether the guardian takes
restart actions, and POST /v1/nodes/{id}/restart is the operator
escape hatch that forces a restart past the failure threshold — still
subject to the restart budget, so it answers 409 when the budget is
spent or a restart is already under way.

All responses are JSON envelopes ({"data": ...} or {"error": ...}).
The server only ever reads published snapshots; it never touches
guardian-owned records directly.
*/
package api
