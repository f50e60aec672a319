package types

import (
	"time"
)

// NodeState represents the guardian's view of a node
type NodeState string

const (
	NodeHealthy    NodeState = "healthy"
	NodeUnhealthy  NodeState = "unhealthy"
	NodeCrashed    NodeState = "crashed"
	NodeRestarting NodeState = "restarting"
)

// ProbeResult is the verdict of a single health probe
type ProbeResult string

const (
	ProbeHealthy     ProbeResult = "healthy"
	ProbeUnhealthy   ProbeResult = "unhealthy"
	ProbeUnreachable ProbeResult = "unreachable"
	ProbeTimeout     ProbeResult = "timeout"
)

// Bad reports whether the verdict counts as a failed observation.
// Unreachable and Timeout count the same as Unhealthy.
func (r ProbeResult) Bad() bool {
	return r != ProbeHealthy
}

// RestartOutcome is the terminal result of an actuator restart attempt
type RestartOutcome string

const (
	RestartCompleted RestartOutcome = "completed"
	RestartFailed    RestartOutcome = "failed"
)

// NodeRecord is the per-node state owned exclusively by the guardian.
// FailureCount counts consecutive bad probes since the last reset;
// RestartCount counts restarts issued since the budget was last replenished.
type NodeRecord struct {
	ID             string
	State          NodeState
	FailureCount   int
	RestartCount   int
	LastProbe      time.Time
	LastTransition time.Time
}

// NewNodeRecord returns the startup record for a node: healthy with
// zeroed counters.
func NewNodeRecord(id string) *NodeRecord {
	return &NodeRecord{
		ID:    id,
		State: NodeHealthy,
	}
}

// Clone returns a copy of the record. Snapshots hand out clones so
// readers never hold a reference into guardian-owned state.
func (r *NodeRecord) Clone() *NodeRecord {
	c := *r
	return &c
}

// ProbeKind selects the probe mechanism for a node
type ProbeKind string

const (
	ProbeKindHTTP ProbeKind = "http"
	ProbeKindTCP  ProbeKind = "tcp"
	ProbeKindExec ProbeKind = "exec"
)

// ProbeSpec describes how a node's health is checked
type ProbeSpec struct {
	Kind     ProbeKind `yaml:"kind"`
	Endpoint string    `yaml:"endpoint,omitempty"` // URL (http) or host:port (tcp)
	Command  []string  `yaml:"command,omitempty"`  // for exec probes
}

// RestartKind selects the restart mechanism for a node
type RestartKind string

const (
	RestartKindHTTP RestartKind = "http"
	RestartKindExec RestartKind = "exec"
)

// RestartSpec describes how a node is restarted
type RestartSpec struct {
	Kind     RestartKind `yaml:"kind"`
	Endpoint string      `yaml:"endpoint,omitempty"`
	Command  []string    `yaml:"command,omitempty"`
}

// NodeSpec is the static configuration for one supervised node.
// The node set is fixed at startup; nodes are never added or removed
// while the guardian runs.
type NodeSpec struct {
	ID      string      `yaml:"id"`
	Probe   ProbeSpec   `yaml:"probe"`
	Restart RestartSpec `yaml:"restart"`
}

// GuardianStatus is the process-wide guardian state
type GuardianStatus struct {
	Active          bool
	LastHealthCheck string // node id of the most recent probe, "" before the first
}

// NodeSnapshot is the read-only published view of one node
type NodeSnapshot struct {
	ID           string    `json:"id"`
	State        NodeState `json:"state"`
	FailureCount int       `json:"failure_count"`
	RestartCount int       `json:"restart_count"`
	LastProbe    time.Time `json:"last_probe,omitempty"`
	PendingToken string    `json:"pending_token,omitempty"`
}

// ClusterSnapshot is the read-only published view of the whole guardian
type ClusterSnapshot struct {
	Active          bool           `json:"active"`
	LastHealthCheck string         `json:"last_health_check"`
	Nodes           []NodeSnapshot `json:"nodes"`
	TakenAt         time.Time      `json:"taken_at"`
}
