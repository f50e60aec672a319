/*
Package metrics exposes Prometheus instrumentation and process health
endpoints for the meshguard daemon.

Node gauges mirror the guardian's published snapshot (state one-hot,
failure and restart counters); counters track probes by verdict, issued
and failed restarts, budget-exhaustion refusals and availability-floor
crash refusals. The scheduler records a histogram of round durations.

HealthHandler, ReadyHandler and LivenessHandler serve /health, /ready
and /live for the daemon itself; readiness requires the guardian and
scheduler components to have registered healthy.
*/
package metrics
