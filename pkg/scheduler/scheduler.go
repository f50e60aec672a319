package scheduler

import (
	"context"
	"time"

	"github.com/meshguard/meshguard/pkg/guardian"
	"github.com/meshguard/meshguard/pkg/log"
	"github.com/meshguard/meshguard/pkg/metrics"
	"github.com/meshguard/meshguard/pkg/probe"
	"github.com/rs/zerolog"
)

// Scheduler drives the guardian: it selects the next node round-robin,
// probes it, feeds the observation in and lets the guardian evaluate a
// restart. One node is visited per round, so over any window of
// |nodes| rounds every node is probed exactly once — the weak-fairness
// guarantee that no node or eligible restart can be starved.
type Scheduler struct {
	guardian     *guardian.Guardian
	probers      map[string]probe.Prober
	order        []string
	next         int
	interval     time.Duration
	probeTimeout time.Duration
	stopCh       chan struct{}
	logger       zerolog.Logger
}

// New creates a scheduler over the guardian's node set. Probers are
// keyed by node id and must cover every node.
func New(g *guardian.Guardian, probers map[string]probe.Prober, interval, probeTimeout time.Duration) *Scheduler {
	return &Scheduler{
		guardian:     g,
		probers:      probers,
		order:        g.Nodes(),
		interval:     interval,
		probeTimeout: probeTimeout,
		stopCh:       make(chan struct{}),
		logger:       log.WithComponent("scheduler"),
	}
}

// Start begins the scheduling loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runRound()
		case <-s.stopCh:
			return
		}
	}
}

// runRound performs one scheduling round: probe the next node, evaluate
// a restart, then tick the guardian so eligible budgets replenish.
func (s *Scheduler) runRound() {
	start := time.Now()
	defer func() {
		metrics.RoundDuration.Observe(time.Since(start).Seconds())
		metrics.RoundsTotal.Inc()
	}()

	nodeID := s.selectNode()
	if nodeID != "" {
		s.probeNode(nodeID)
	}

	s.guardian.Tick()
}

// selectNode advances the round-robin cursor
func (s *Scheduler) selectNode() string {
	if len(s.order) == 0 {
		return ""
	}
	nodeID := s.order[s.next]
	s.next = (s.next + 1) % len(s.order)
	return nodeID
}

// probeNode probes one node and feeds the verdict to the guardian. A
// node whose restart actuation is still in flight is skipped: probing
// it mid-restart would misread the restart as a fresh failure.
func (s *Scheduler) probeNode(nodeID string) {
	if s.guardian.HasPendingRestart(nodeID) {
		s.logger.Debug().Str("node", nodeID).Msg("restart in flight, probe skipped")
		return
	}

	prober, ok := s.probers[nodeID]
	if !ok {
		s.logger.Error().Str("node", nodeID).Msg("no prober configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.probeTimeout)
	result := prober.Probe(ctx)
	cancel()

	obs, err := s.guardian.Observe(nodeID, result)
	if err != nil {
		s.logger.Error().Err(err).Str("node", nodeID).Msg("observation rejected")
		return
	}

	s.logger.Debug().Str("node", nodeID).
		Str("result", string(result)).
		Str("state", string(obs.State)).
		Msg("probe recorded")

	if result.Bad() {
		decision, err := s.guardian.MaybeRestart(nodeID)
		if err != nil {
			s.logger.Error().Err(err).Str("node", nodeID).Msg("restart evaluation failed")
			return
		}
		if decision.Action == guardian.ActionRestart {
			s.logger.Info().Str("node", nodeID).Str("token", decision.Token).Msg("restart triggered")
		} else if decision.Reason != guardian.ReasonBelowThreshold {
			s.logger.Debug().Str("node", nodeID).Str("reason", string(decision.Reason)).Msg("no restart")
		}
	}
}
