package scheduler

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jizhuozhi/go-future"
	"github.com/meshguard/meshguard/pkg/actuator"
	"github.com/meshguard/meshguard/pkg/guardian"
	"github.com/meshguard/meshguard/pkg/log"
	"github.com/meshguard/meshguard/pkg/probe"
	"github.com/meshguard/meshguard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// scriptedProber returns its verdicts in order, repeating the last one
// once the script runs out.
type scriptedProber struct {
	mu       sync.Mutex
	verdicts []types.ProbeResult
	calls    int
}

func (p *scriptedProber) Probe(ctx context.Context) types.ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i >= len(p.verdicts) {
		i = len(p.verdicts) - 1
	}
	return p.verdicts[i]
}

func (p *scriptedProber) Kind() types.ProbeKind { return types.ProbeKindExec }

func (p *scriptedProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type gatedRestarter struct {
	gate    chan struct{}
	outcome types.RestartOutcome
}

func (r *gatedRestarter) Restart(ctx context.Context, spec types.NodeSpec) *future.Future[types.RestartOutcome] {
	p := future.NewPromise[types.RestartOutcome]()
	go func() {
		if r.gate != nil {
			<-r.gate
		}
		p.Set(r.outcome, nil)
	}()
	return p.Future()
}

func testGuardian(t *testing.T, ids []string, restarters map[string]actuator.Restarter) *guardian.Guardian {
	t.Helper()
	specs := make([]types.NodeSpec, 0, len(ids))
	for _, id := range ids {
		specs = append(specs, types.NodeSpec{ID: id})
	}
	g, err := guardian.New(guardian.Config{
		MaxFailures:    3,
		MaxRestarts:    2,
		RestartTimeout: time.Second,
		StartActive:    true,
	}, specs, restarters, nil, nil)
	require.NoError(t, err)
	return g
}

func nodeSnap(t *testing.T, g *guardian.Guardian, id string) types.NodeSnapshot {
	t.Helper()
	for _, ns := range g.Snapshot().Nodes {
		if ns.ID == id {
			return ns
		}
	}
	t.Fatalf("node %s not in snapshot", id)
	return types.NodeSnapshot{}
}

func TestRoundRobinFairness(t *testing.T) {
	g := testGuardian(t, []string{"a", "b", "c"}, nil)
	probers := map[string]*scriptedProber{
		"a": {verdicts: []types.ProbeResult{types.ProbeHealthy}},
		"b": {verdicts: []types.ProbeResult{types.ProbeHealthy}},
		"c": {verdicts: []types.ProbeResult{types.ProbeHealthy}},
	}

	s := New(g, map[string]probe.Prober{
		"a": probers["a"], "b": probers["b"], "c": probers["c"],
	}, time.Hour, time.Second)

	// Two full cycles: every node is probed exactly twice.
	for i := 0; i < 6; i++ {
		s.runRound()
	}
	for id, p := range probers {
		assert.Equal(t, 2, p.callCount(), "node %s", id)
	}
}

func TestTimeoutCountsAsFailure(t *testing.T) {
	g := testGuardian(t, []string{"a", "b"}, nil)
	s := New(g, map[string]probe.Prober{
		"a": &scriptedProber{verdicts: []types.ProbeResult{types.ProbeTimeout}},
		"b": &scriptedProber{verdicts: []types.ProbeResult{types.ProbeHealthy}},
	}, time.Hour, time.Second)

	s.runRound() // probes a
	ns := nodeSnap(t, g, "a")
	assert.Equal(t, types.NodeUnhealthy, ns.State)
	assert.Equal(t, 1, ns.FailureCount)
}

func TestRestartTriggeredThroughRounds(t *testing.T) {
	restarter := &gatedRestarter{outcome: types.RestartCompleted}
	g := testGuardian(t, []string{"a", "b"},
		map[string]actuator.Restarter{"a": restarter})

	s := New(g, map[string]probe.Prober{
		"a": &scriptedProber{verdicts: []types.ProbeResult{
			types.ProbeUnhealthy, types.ProbeUnhealthy, types.ProbeUnhealthy,
		}},
		"b": &scriptedProber{verdicts: []types.ProbeResult{types.ProbeHealthy}},
	}, time.Hour, time.Second)

	// Three failing visits to a reach the threshold and trigger the
	// restart on the third.
	for i := 0; i < 6; i++ {
		s.runRound()
	}

	require.Eventually(t, func() bool {
		return nodeSnap(t, g, "a").State == types.NodeHealthy
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, nodeSnap(t, g, "a").RestartCount)
}

func TestPendingRestartSkipsProbe(t *testing.T) {
	restarter := &gatedRestarter{outcome: types.RestartCompleted, gate: make(chan struct{})}
	defer close(restarter.gate)

	g := testGuardian(t, []string{"a", "b"},
		map[string]actuator.Restarter{"a": restarter})

	prober := &scriptedProber{verdicts: []types.ProbeResult{types.ProbeUnhealthy}}
	s := New(g, map[string]probe.Prober{
		"a": prober,
		"b": &scriptedProber{verdicts: []types.ProbeResult{types.ProbeHealthy}},
	}, time.Hour, time.Second)

	_, err := g.ForceRestart("a")
	require.NoError(t, err)
	require.True(t, g.HasPendingRestart("a"))

	s.runRound() // a's turn, but its restart is in flight
	s.runRound() // b
	s.runRound() // a again, still in flight

	assert.Equal(t, 0, prober.callCount())
}

func TestTickRunsEveryRound(t *testing.T) {
	g := testGuardian(t, []string{"a", "b"}, nil)
	s := New(g, map[string]probe.Prober{
		"a": &scriptedProber{verdicts: []types.ProbeResult{types.ProbeHealthy}},
		"b": &scriptedProber{verdicts: []types.ProbeResult{types.ProbeHealthy}},
	}, time.Hour, time.Second)

	// Spend a restart, then recover the node by hand.
	_, err := g.ForceRestart("a")
	require.NoError(t, err)
	_, err = g.Observe("a", types.ProbeHealthy)
	require.NoError(t, err)
	require.Equal(t, 1, nodeSnap(t, g, "a").RestartCount)

	// The next round's tick replenishes the budget.
	s.runRound()
	assert.Equal(t, 0, nodeSnap(t, g, "a").RestartCount)
}

func TestStartStop(t *testing.T) {
	g := testGuardian(t, []string{"a"}, nil)
	prober := &scriptedProber{verdicts: []types.ProbeResult{types.ProbeHealthy}}
	s := New(g, map[string]probe.Prober{"a": prober}, 5*time.Millisecond, time.Second)

	s.Start()
	require.Eventually(t, func() bool { return prober.callCount() >= 2 },
		time.Second, 5*time.Millisecond)
	s.Stop()
	time.Sleep(10 * time.Millisecond) // let an in-flight round drain

	n := prober.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, prober.callCount(), "no probes after stop")
}
