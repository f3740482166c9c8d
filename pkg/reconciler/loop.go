package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mendhq/mend/pkg/detector"
	"github.com/mendhq/mend/pkg/events"
	"github.com/mendhq/mend/pkg/healer"
	"github.com/mendhq/mend/pkg/log"
	"github.com/mendhq/mend/pkg/metrics"
	"github.com/mendhq/mend/pkg/observer"
	"github.com/mendhq/mend/pkg/storage"
	"github.com/mendhq/mend/pkg/types"
)

// DefaultInterval is how often a cycle runs when none is configured.
const DefaultInterval = 30 * time.Second

// Loop drives the observe-detect-heal cycle on a fixed interval.
// Each tick runs one full cycle; a slow cycle delays the next tick
// rather than overlapping it.
type Loop struct {
	observer *observer.Observer
	detector *detector.Detector
	healer   *healer.Controller
	store    storage.Store
	broker   *events.Broker
	interval time.Duration

	mu     sync.Mutex
	cycle  uint64
	stopCh chan struct{}
	doneCh chan struct{}
	logger zerolog.Logger
}

// New creates a loop over the given collaborators. store and broker
// may be nil; the loop then runs without persistence or events.
func New(obs *observer.Observer, det *detector.Detector, ctl *healer.Controller, store storage.Store, broker *events.Broker, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		observer: obs,
		detector: det,
		healer:   ctl,
		store:    store,
		broker:   broker,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   log.WithComponent("loop"),
	}
}

// Start begins the healing loop
func (l *Loop) Start(ctx context.Context) {
	go l.run(ctx)
}

// Stop stops the loop and waits for an in-flight cycle to finish
func (l *Loop) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	metrics.UpdateComponent("loop", true, "running")

	for {
		select {
		case <-ticker.C:
			if _, err := l.RunCycle(ctx); err != nil {
				l.logger.Error().Err(err).Msg("Cycle failed")
				metrics.UpdateComponent("loop", false, err.Error())
			} else {
				metrics.UpdateComponent("loop", true, "running")
			}
		case <-l.stopCh:
			metrics.UpdateComponent("loop", false, "stopped")
			return
		case <-ctx.Done():
			metrics.UpdateComponent("loop", false, "stopped")
			return
		}
	}
}

// RunCycle performs one observe-detect-heal cycle and returns its
// stats. Safe to call concurrently with the ticker; cycles serialize
// on an internal mutex.
func (l *Loop) RunCycle(ctx context.Context) (*types.CycleStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cycle++
	stats := &types.CycleStats{
		CycleID:   uuid.New().String(),
		Cycle:     l.cycle,
		StartedAt: time.Now(),
	}

	timer := metrics.NewTimer()
	defer func() {
		stats.Duration = timer.Duration()
		timer.ObserveDuration(metrics.CycleDuration)
		metrics.CyclesTotal.Inc()
	}()

	nodes, err := l.observer.Observe()
	if err != nil {
		return stats, fmt.Errorf("failed to observe health: %w", err)
	}
	stats.NodesObserved = len(nodes)
	l.updateNodeGauges(nodes)

	vulns := l.detector.Detect(nodes)
	stats.VulnerabilitiesDetected = len(vulns)
	for _, v := range vulns {
		metrics.VulnerabilitiesDetected.WithLabelValues(string(v.Kind)).Inc()
		l.emit(events.EventVulnerabilityDetected, v.Detail, map[string]string{
			"kind":     string(v.Kind),
			"target":   v.TargetID,
			"severity": v.Severity.String(),
		})
	}

	actions, suppressed := l.healer.Decide(vulns)
	stats.ActionsSuppressedByCooldown = suppressed
	if suppressed > 0 {
		l.emit(events.EventActionSuppressed,
			fmt.Sprintf("%d actions suppressed by cooldown", suppressed), nil)
	}

	results := l.healer.Act(ctx, actions)
	stats.ActionsTaken = len(results)
	l.recordResults(stats, results)

	if l.store != nil {
		if err := l.store.SaveCycleStats(stats); err != nil {
			// Persistence is best effort; the cycle itself succeeded
			l.logger.Warn().Err(err).Msg("Failed to persist cycle stats")
		}
	}

	l.emit(events.EventCycleCompleted,
		fmt.Sprintf("cycle %d: %d nodes, %d vulnerabilities, %d actions",
			stats.Cycle, stats.NodesObserved, stats.VulnerabilitiesDetected, stats.ActionsTaken),
		map[string]string{"cycle_id": stats.CycleID})

	l.logger.Debug().
		Uint64("cycle", stats.Cycle).
		Int("nodes", stats.NodesObserved).
		Int("vulnerabilities", stats.VulnerabilitiesDetected).
		Int("actions", stats.ActionsTaken).
		Dur("duration", stats.Duration).
		Msg("Cycle completed")

	return stats, nil
}

// Cycle returns the number of completed cycles
func (l *Loop) Cycle() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cycle
}

func (l *Loop) updateNodeGauges(nodes []types.HealthNode) {
	counts := map[types.NodeKind]int{}
	unhealthyResources := 0
	for _, n := range nodes {
		counts[n.Kind]++
		if n.Kind == types.NodeKindResource && n.Responsiveness == 0.0 {
			unhealthyResources++
		}
	}
	metrics.NodesObserved.WithLabelValues(string(types.NodeKindWorker)).Set(float64(counts[types.NodeKindWorker]))
	metrics.NodesObserved.WithLabelValues(string(types.NodeKindResource)).Set(float64(counts[types.NodeKindResource]))
	metrics.UnhealthyResources.Set(float64(unhealthyResources))
}

func (l *Loop) recordResults(stats *types.CycleStats, results []types.ActionResult) {
	for _, res := range results {
		meta := map[string]string{
			"kind":   string(res.Action.Kind),
			"target": res.Action.TargetID,
		}
		l.emit(events.EventActionDispatched, res.Action.Reason, meta)

		if res.Recovery == nil {
			continue
		}

		if l.store != nil {
			if err := l.store.SaveRecovery(res.Recovery); err != nil {
				l.logger.Warn().Err(err).Msg("Failed to persist recovery result")
			}
		}

		switch res.Recovery.Status {
		case types.RecoveryRecovered, types.RecoveryAlreadyHealthy:
			stats.RecoveriesSucceeded++
		case types.RecoverySkippedLocked:
			stats.RecoveriesSkipped++
		default:
			stats.RecoveriesFailed++
		}

		l.emit(events.EventRecoveryResult, res.Recovery.LastError, map[string]string{
			"service": res.Recovery.Service,
			"status":  string(res.Recovery.Status),
		})
	}
}

func (l *Loop) emit(typ events.EventType, msg string, meta map[string]string) {
	if l.broker == nil {
		return
	}
	l.broker.Emit(typ, msg, meta)
}
