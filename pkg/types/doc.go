/*
Package types defines the core data types shared across meshguard packages.

The central type is NodeRecord, the guardian's per-node bookkeeping: the
node's lifecycle state (healthy, unhealthy, crashed, restarting) plus the
consecutive-failure and restart counters that drive intervention decisions.
Records are owned and mutated only by the guardian package; every other
package sees them through NodeSnapshot and ClusterSnapshot copies.

NodeSpec, ProbeSpec and RestartSpec carry the static node configuration
loaded from the node manifest at startup. ProbeResult is the four-value
verdict contract that every probe implementation maps onto; RestartOutcome
is the two-value contract for actuator completions.
*/
package types
