package guardian

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meshguard/meshguard/pkg/actuator"
	"github.com/meshguard/meshguard/pkg/events"
	"github.com/meshguard/meshguard/pkg/fsm"
	"github.com/meshguard/meshguard/pkg/log"
	"github.com/meshguard/meshguard/pkg/metrics"
	"github.com/meshguard/meshguard/pkg/storage"
	"github.com/meshguard/meshguard/pkg/types"
	"github.com/rs/zerolog"
)

// Config holds the guardian's tunables
type Config struct {
	MaxFailures    int
	MaxRestarts    int
	RestartTimeout time.Duration
	StartActive    bool
}

// Action is what the guardian decided to do
type Action string

const (
	ActionNone    Action = "none"
	ActionRestart Action = "restart"
)

// Reason explains a "no action" decision
type Reason string

const (
	ReasonNotActive         Reason = "not-active"
	ReasonAlreadyRestarting Reason = "already-restarting"
	ReasonBelowThreshold    Reason = "below-threshold"
	ReasonBudgetExhausted   Reason = "budget-exhausted"
)

// Decision is the structured outcome of a restart evaluation
type Decision struct {
	Action Action
	Reason Reason // set when Action is none
	Token  string // set when Action is restart
}

// Observation is the structured outcome of recording a probe result
type Observation struct {
	State types.NodeState

	// CrashRefused is set when the probe indicated a crash but the
	// transition was refused to preserve the availability floor. The
	// failure was still counted.
	CrashRefused bool
}

type pendingRestart struct {
	token    string
	issuedAt time.Time
}

// Guardian is the single authority deciding restart actions for the
// node set. All NodeRecord mutations happen here, serialized behind one
// mutex, so every transition is atomic and the availability floor is
// checked under the same lock that applies the crash.
type Guardian struct {
	mu         sync.Mutex
	cfg        Config
	limits     fsm.Limits
	order      []string
	specs      map[string]types.NodeSpec
	records    map[string]*types.NodeRecord
	restarters map[string]actuator.Restarter
	pending    map[string]*pendingRestart

	active          bool
	lastHealthCheck string

	store  storage.Store // optional
	broker *events.Broker
	logger zerolog.Logger
}

// New creates a guardian for the given node set. Restarters are keyed
// by node id. Store and broker may be nil; persisted records, when
// present, take precedence over fresh healthy records so counters
// survive daemon restarts.
func New(cfg Config, specs []types.NodeSpec, restarters map[string]actuator.Restarter, store storage.Store, broker *events.Broker) (*Guardian, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("guardian requires at least one node")
	}

	g := &Guardian{
		cfg:        cfg,
		limits:     fsm.Limits{MaxFailures: cfg.MaxFailures, MaxRestarts: cfg.MaxRestarts},
		specs:      make(map[string]types.NodeSpec, len(specs)),
		records:    make(map[string]*types.NodeRecord, len(specs)),
		restarters: restarters,
		pending:    make(map[string]*pendingRestart),
		active:     cfg.StartActive,
		store:      store,
		broker:     broker,
		logger:     log.WithComponent("guardian"),
	}

	for _, spec := range specs {
		if _, dup := g.specs[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate node id: %s", spec.ID)
		}
		g.specs[spec.ID] = spec
		g.order = append(g.order, spec.ID)
		g.records[spec.ID] = types.NewNodeRecord(spec.ID)
	}

	if store != nil {
		g.restore()
	}

	for _, id := range g.order {
		g.publishNodeMetrics(g.records[id])
	}
	metrics.GuardianActive.Set(boolToGauge(g.active))

	return g, nil
}

// restore adopts persisted records for configured nodes. Counters are
// clamped to the current limits in case the configuration tightened.
func (g *Guardian) restore() {
	for _, id := range g.order {
		rec, err := g.store.GetNode(id)
		if err != nil {
			continue
		}
		if rec.FailureCount > g.limits.MaxFailures {
			rec.FailureCount = g.limits.MaxFailures
		}
		if rec.RestartCount > g.limits.MaxRestarts {
			rec.RestartCount = g.limits.MaxRestarts
		}
		g.records[id] = rec
	}

	if status, err := g.store.GetGuardian(); err == nil {
		g.active = status.Active
		g.lastHealthCheck = status.LastHealthCheck
	}
}

// Nodes returns the node ids in manifest order
func (g *Guardian) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Spec returns the static configuration for a node
func (g *Guardian) Spec(nodeID string) (types.NodeSpec, bool) {
	spec, ok := g.specs[nodeID]
	return spec, ok
}

// Observe records a probe verdict for a node and returns its new state.
// Transitions applied depend on the current state: the first bad probe
// fails a healthy node, an unreachable verdict additionally attempts
// the crash transition, and bad probes accumulate in FailureCount up to
// its cap. A crash that would violate the availability floor is refused
// but the failure is still counted.
func (g *Guardian) Observe(nodeID string, result types.ProbeResult) (Observation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[nodeID]
	if !ok {
		return Observation{}, fmt.Errorf("unknown node: %s", nodeID)
	}

	now := time.Now()
	rec.LastProbe = now
	g.lastHealthCheck = nodeID

	obs := Observation{}

	if rec.State == types.NodeRestarting {
		g.observeRestarting(rec, result, now)
		obs.State = rec.State
		g.finishMutation(rec)
		return obs, nil
	}

	if !result.Bad() {
		g.observeHealthy(rec, now)
		obs.State = rec.State
		g.finishMutation(rec)
		return obs, nil
	}

	// Bad verdict: fail a healthy node first, then consider the crash,
	// then count the failure.
	if rec.State == types.NodeHealthy {
		g.apply(rec, fsm.Fail, now)
		g.publish(&events.Event{
			Type:    events.EventNodeFailed,
			NodeID:  nodeID,
			Message: fmt.Sprintf("probe returned %s", result),
		})
	}

	if result == types.ProbeUnreachable && rec.State != types.NodeCrashed {
		obs.CrashRefused = !g.tryCrash(rec, now)
	}

	if fsm.Enabled(*rec, fsm.HealthCheckUnhealthy, g.limits, g.env()) {
		g.apply(rec, fsm.HealthCheckUnhealthy, now)
	}

	metrics.ProbesTotal.WithLabelValues(nodeID, string(result)).Inc()
	obs.State = rec.State
	g.finishMutation(rec)
	return obs, nil
}

// observeHealthy handles a good probe outside of a restart
func (g *Guardian) observeHealthy(rec *types.NodeRecord, now time.Time) {
	metrics.ProbesTotal.WithLabelValues(rec.ID, string(types.ProbeHealthy)).Inc()

	switch rec.State {
	case types.NodeHealthy:
		g.apply(rec, fsm.HealthCheckHealthy, now)
	case types.NodeUnhealthy:
		g.apply(rec, fsm.Recover, now)
		g.publish(&events.Event{
			Type:   events.EventNodeRecovered,
			NodeID: rec.ID,
		})
	case types.NodeCrashed:
		// No probe transition out of crashed: recovery happens through
		// a restart (automated or forced). The healthy answer is still
		// recorded in LastProbe.
		g.logger.Debug().Str("node", rec.ID).Msg("healthy probe on crashed node, awaiting restart")
	}
}

// observeRestarting re-evaluates a node whose restart is no longer
// awaited: a good probe means the node came back, a bad one reverts it
// to unhealthy so failure counting resumes.
func (g *Guardian) observeRestarting(rec *types.NodeRecord, result types.ProbeResult, now time.Time) {
	metrics.ProbesTotal.WithLabelValues(rec.ID, string(result)).Inc()

	if !result.Bad() {
		g.apply(rec, fsm.RestartCompletes, now)
		delete(g.pending, rec.ID)
		g.publish(&events.Event{
			Type:    events.EventRestartCompleted,
			NodeID:  rec.ID,
			Message: "node answered healthy while restarting",
		})
		return
	}

	if _, awaited := g.pending[rec.ID]; awaited {
		// Restart still in flight; a bad probe is expected mid-restart
		// and is not held against the node.
		return
	}

	g.apply(rec, fsm.RestartAborted, now)
	if fsm.Enabled(*rec, fsm.HealthCheckUnhealthy, g.limits, g.env()) {
		g.apply(rec, fsm.HealthCheckUnhealthy, now)
	}
}

// tryCrash attempts the crash transition, refusing it when the
// availability floor would be violated. Returns true on success.
func (g *Guardian) tryCrash(rec *types.NodeRecord, now time.Time) bool {
	env := g.env()
	if !fsm.Enabled(*rec, fsm.Crash, g.limits, env) {
		if !env.CrashAllowed {
			metrics.CrashRefusalsTotal.Inc()
			g.logger.Error().Str("node", rec.ID).
				Int("crashed", g.crashedCount()).
				Msg("crash refused: availability floor would be violated, correlated failures likely")
			g.publish(&events.Event{
				Type:    events.EventCrashRefused,
				NodeID:  rec.ID,
				Message: "crash would leave no non-crashed node",
			})
		}
		return false
	}

	g.apply(rec, fsm.Crash, now)
	g.publish(&events.Event{
		Type:   events.EventNodeCrashed,
		NodeID: rec.ID,
	})
	return true
}

// MaybeRestart evaluates whether a restart is warranted for the node
// and, if so, issues one asynchronously and returns its action token.
// Otherwise it returns no action with the reason.
func (g *Guardian) MaybeRestart(nodeID string) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[nodeID]
	if !ok {
		return Decision{}, fmt.Errorf("unknown node: %s", nodeID)
	}

	if !g.active {
		return Decision{Action: ActionNone, Reason: ReasonNotActive}, nil
	}
	if rec.State == types.NodeRestarting {
		return Decision{Action: ActionNone, Reason: ReasonAlreadyRestarting}, nil
	}
	if rec.FailureCount < g.limits.MaxFailures ||
		(rec.State != types.NodeUnhealthy && rec.State != types.NodeCrashed) {
		return Decision{Action: ActionNone, Reason: ReasonBelowThreshold}, nil
	}
	if rec.RestartCount >= g.limits.MaxRestarts {
		metrics.BudgetExhaustedTotal.WithLabelValues(nodeID).Inc()
		g.logger.Warn().Str("node", nodeID).
			Int("restart_count", rec.RestartCount).
			Msg("restart budget exhausted, operator attention required")
		g.publish(&events.Event{
			Type:    events.EventBudgetExhausted,
			NodeID:  nodeID,
			Message: fmt.Sprintf("node needs a restart but %d of %d restarts are spent", rec.RestartCount, g.limits.MaxRestarts),
		})
		return Decision{Action: ActionNone, Reason: ReasonBudgetExhausted}, nil
	}

	g.apply(rec, fsm.GuardianRestart, time.Now())
	token := g.issueRestart(rec, "auto")
	g.finishMutation(rec)
	return Decision{Action: ActionRestart, Token: token}, nil
}

// ForceRestart is the operator escape hatch: it bypasses the failure
// threshold and the active flag but still respects the restart budget.
func (g *Guardian) ForceRestart(nodeID string) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[nodeID]
	if !ok {
		return Decision{}, fmt.Errorf("unknown node: %s", nodeID)
	}

	if rec.State == types.NodeRestarting {
		return Decision{Action: ActionNone, Reason: ReasonAlreadyRestarting}, nil
	}
	if rec.RestartCount >= g.limits.MaxRestarts {
		metrics.BudgetExhaustedTotal.WithLabelValues(nodeID).Inc()
		return Decision{Action: ActionNone, Reason: ReasonBudgetExhausted}, nil
	}

	now := time.Now()
	rec.State = types.NodeRestarting
	rec.RestartCount++
	rec.FailureCount = 0
	rec.LastTransition = now

	token := g.issueRestart(rec, "forced")
	g.finishMutation(rec)
	return Decision{Action: ActionRestart, Token: token}, nil
}

// issueRestart registers the pending restart and starts the actuation.
// Caller holds the lock and has already applied the state change.
func (g *Guardian) issueRestart(rec *types.NodeRecord, trigger string) string {
	token := uuid.New().String()
	g.pending[rec.ID] = &pendingRestart{token: token, issuedAt: time.Now()}

	metrics.RestartsIssuedTotal.WithLabelValues(rec.ID, trigger).Inc()
	g.logger.Info().Str("node", rec.ID).Str("trigger", trigger).
		Int("restart_count", rec.RestartCount).
		Msg("restart issued")
	g.publish(&events.Event{
		Type:     events.EventRestartIssued,
		NodeID:   rec.ID,
		Metadata: map[string]string{"trigger": trigger, "token": token},
	})

	restarter := g.restarters[rec.ID]
	if restarter == nil {
		// No actuator wired (inactive configurations, tests): the node
		// stays restarting until a probe re-evaluates it.
		delete(g.pending, rec.ID)
		return token
	}

	go g.awaitRestart(rec.ID, token, restarter)
	return token
}

// awaitRestart blocks on the actuator future off the guardian lock and
// feeds the terminal outcome back in.
func (g *Guardian) awaitRestart(nodeID, token string, restarter actuator.Restarter) {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.RestartTimeout)
	defer cancel()

	fut := restarter.Restart(ctx, g.specs[nodeID])
	outcome, err := fut.Get()

	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pending[nodeID]
	if !ok || p.token != token {
		return // superseded
	}
	delete(g.pending, nodeID)

	if err == nil && outcome == types.RestartCompleted {
		g.completeRestart(nodeID)
		return
	}

	// The node stays restarting; no budget is refunded and no retry is
	// issued. The next probe re-evaluates it.
	metrics.RestartsFailedTotal.WithLabelValues(nodeID).Inc()
	g.logger.Warn().Str("node", nodeID).Err(err).Msg("restart attempt failed")
	g.publish(&events.Event{
		Type:    events.EventRestartFailed,
		NodeID:  nodeID,
		Message: errMessage(err),
	})
}

// OnRestartComplete applies the restart completion for a node
func (g *Guardian) OnRestartComplete(nodeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.records[nodeID]; !ok {
		return fmt.Errorf("unknown node: %s", nodeID)
	}
	delete(g.pending, nodeID)
	return g.completeRestart(nodeID)
}

// completeRestart transitions restarting -> healthy. Caller holds the lock.
func (g *Guardian) completeRestart(nodeID string) error {
	rec := g.records[nodeID]
	if err := g.applyChecked(rec, fsm.RestartCompletes, time.Now()); err != nil {
		return err
	}

	g.logger.Info().Str("node", nodeID).Msg("restart completed")
	g.publish(&events.Event{
		Type:   events.EventRestartCompleted,
		NodeID: nodeID,
	})
	g.finishMutation(rec)
	return nil
}

// Tick runs once per scheduling round and replenishes the restart
// budget of every node that is healthy with no accumulated failures.
// Calling it when no node is eligible is a no-op.
func (g *Guardian) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for _, id := range g.order {
		rec := g.records[id]
		if !fsm.Enabled(*rec, fsm.ResetRestartBudget, g.limits, g.env()) {
			continue
		}
		spent := rec.RestartCount
		g.apply(rec, fsm.ResetRestartBudget, now)
		g.logger.Info().Str("node", id).Int("spent", spent).Msg("restart budget replenished")
		g.publish(&events.Event{
			Type:     events.EventBudgetReplenished,
			NodeID:   id,
			Metadata: map[string]string{"spent": fmt.Sprintf("%d", spent)},
		})
		g.finishMutation(rec)
	}
}

// SetActive toggles whether the guardian takes restart actions. While
// inactive, observations continue so state stays accurate for resumption.
func (g *Guardian) SetActive(active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active == active {
		return
	}
	g.active = active
	metrics.GuardianActive.Set(boolToGauge(active))

	evt := events.EventGuardianPaused
	msg := "guardian paused, restarts disabled"
	if active {
		evt = events.EventGuardianResumed
		msg = "guardian resumed"
	}
	g.logger.Info().Msg(msg)
	g.publish(&events.Event{Type: evt})
	g.persistGuardian()
}

// Active reports whether the guardian takes restart actions
func (g *Guardian) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// HasPendingRestart reports whether a restart actuation is in flight
// for the node. The scheduler skips probing such nodes so a restart in
// progress is not misread as a fresh failure.
func (g *Guardian) HasPendingRestart(nodeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[nodeID]
	return ok
}

// Snapshot returns an immutable copy of the guardian's view for
// observability. Callers never see live records.
func (g *Guardian) Snapshot() types.ClusterSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := types.ClusterSnapshot{
		Active:          g.active,
		LastHealthCheck: g.lastHealthCheck,
		TakenAt:         time.Now(),
	}
	for _, id := range g.order {
		rec := g.records[id]
		ns := types.NodeSnapshot{
			ID:           rec.ID,
			State:        rec.State,
			FailureCount: rec.FailureCount,
			RestartCount: rec.RestartCount,
			LastProbe:    rec.LastProbe,
		}
		if p, ok := g.pending[id]; ok {
			ns.PendingToken = p.token
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	return snap
}

// apply runs a transition whose precondition the caller already
// ensured; a precondition failure here is a bug and is logged loudly.
func (g *Guardian) apply(rec *types.NodeRecord, tr fsm.Transition, now time.Time) {
	if err := g.applyChecked(rec, tr, now); err != nil {
		g.logger.Error().Err(err).Str("node", rec.ID).Msg("unexpected transition refusal")
	}
}

func (g *Guardian) applyChecked(rec *types.NodeRecord, tr fsm.Transition, now time.Time) error {
	next, err := fsm.Apply(*rec, tr, g.limits, g.env(), now)
	if err != nil {
		return err
	}
	*rec = next
	return nil
}

func (g *Guardian) env() fsm.Env {
	return fsm.Env{
		GuardianActive: g.active,
		CrashAllowed:   g.crashedCount()+1 < len(g.records),
	}
}

// crashedCount counts nodes currently crashed. Caller holds the lock.
func (g *Guardian) crashedCount() int {
	n := 0
	for _, rec := range g.records {
		if rec.State == types.NodeCrashed {
			n++
		}
	}
	return n
}

// finishMutation persists the record and refreshes its gauges. Caller
// holds the lock.
func (g *Guardian) finishMutation(rec *types.NodeRecord) {
	g.publishNodeMetrics(rec)
	if g.store == nil {
		return
	}
	if err := g.store.SaveNode(rec); err != nil {
		g.logger.Warn().Err(err).Str("node", rec.ID).Msg("failed to persist node record")
	}
	g.persistGuardian()
}

func (g *Guardian) persistGuardian() {
	if g.store == nil {
		return
	}
	status := &types.GuardianStatus{Active: g.active, LastHealthCheck: g.lastHealthCheck}
	if err := g.store.SaveGuardian(status); err != nil {
		g.logger.Warn().Err(err).Msg("failed to persist guardian status")
	}
}

func (g *Guardian) publishNodeMetrics(rec *types.NodeRecord) {
	metrics.SetNodeState(rec.ID, string(rec.State))
	metrics.NodeFailureCount.WithLabelValues(rec.ID).Set(float64(rec.FailureCount))
	metrics.NodeRestartCount.WithLabelValues(rec.ID).Set(float64(rec.RestartCount))
}

func (g *Guardian) publish(event *events.Event) {
	if g.broker != nil {
		g.broker.Publish(event)
	}
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func errMessage(err error) string {
	if err == nil {
		return "actuator reported failure"
	}
	return err.Error()
}
