/*
Package scheduler runs the loop that keeps the guardian supplied with
observations.

Each round, on a fixed interval, the scheduler picks the next node in
strict round-robin order, probes it with the configured per-probe
timeout, records the verdict with the guardian, asks it to evaluate a
restart when the verdict was bad, and finally ticks the guardian so
eligible restart budgets replenish. Round-robin selection gives weak
fairness: over |nodes| consecutive rounds every node is probed exactly
once, so no node and no eligible restart is ever starved.

Nodes with a restart actuation still in flight are skipped for the
round; probing a node mid-restart would misread the restart window as a
fresh failure and burn budget for nothing. Once the actuation resolves
(or times out), probing resumes and re-evaluates the node.
*/
package scheduler
