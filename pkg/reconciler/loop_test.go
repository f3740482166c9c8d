package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendhq/mend/pkg/detector"
	"github.com/mendhq/mend/pkg/events"
	"github.com/mendhq/mend/pkg/healer"
	"github.com/mendhq/mend/pkg/observer"
	"github.com/mendhq/mend/pkg/storage"
	"github.com/mendhq/mend/pkg/types"
)

type stubProvider struct {
	nodes []types.HealthNode
	err   error
}

func (p *stubProvider) Workers() ([]types.HealthNode, error) {
	return p.nodes, p.err
}

type stubResources struct {
	health map[string]float64
}

func (r *stubResources) CurrentHealth() map[string]float64 {
	return r.health
}

type stubDispatcher struct {
	mu      sync.Mutex
	actions []types.HealingAction
	result  func(action types.HealingAction) types.ActionResult
}

func (d *stubDispatcher) Dispatch(_ context.Context, action types.HealingAction) types.ActionResult {
	d.mu.Lock()
	d.actions = append(d.actions, action)
	d.mu.Unlock()
	if d.result != nil {
		return d.result(action)
	}
	return types.ActionResult{Action: action}
}

func (d *stubDispatcher) dispatched() []types.HealingAction {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.HealingAction, len(d.actions))
	copy(out, d.actions)
	return out
}

func healthyWorkers() []types.HealthNode {
	return []types.HealthNode{
		{ID: "worker-1", Kind: types.NodeKindWorker, Role: "runner", Responsiveness: 1.0},
		{ID: "worker-2", Kind: types.NodeKindWorker, Role: "runner", Responsiveness: 0.9},
	}
}

func newTestLoop(provider *stubProvider, resources *stubResources, dispatcher *stubDispatcher, store storage.Store, broker *events.Broker) *Loop {
	obs := observer.New(provider, resources)
	det := detector.New(detector.DefaultConfig())
	ctl := healer.New(healer.DefaultConfig(), dispatcher)
	return New(obs, det, ctl, store, broker, time.Hour)
}

func TestRunCycleHealthyCluster(t *testing.T) {
	dispatcher := &stubDispatcher{}
	loop := newTestLoop(
		&stubProvider{nodes: healthyWorkers()},
		&stubResources{health: map[string]float64{"postgres": 1.0}},
		dispatcher, nil, nil,
	)

	stats, err := loop.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Cycle)
	assert.NotEmpty(t, stats.CycleID)
	assert.Equal(t, 2, stats.NodesObserved)
	assert.Equal(t, 0, stats.VulnerabilitiesDetected)
	assert.Equal(t, 0, stats.ActionsTaken)
	assert.Empty(t, dispatcher.dispatched())
}

func TestRunCycleDownResourceTriggersRecovery(t *testing.T) {
	dispatcher := &stubDispatcher{
		result: func(action types.HealingAction) types.ActionResult {
			return types.ActionResult{
				Action: action,
				Recovery: &types.RecoveryResult{
					Service:    types.ResourceName(action.TargetID),
					Status:     types.RecoveryRecovered,
					Attempts:   1,
					FinishedAt: time.Now(),
				},
			}
		},
	}
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	loop := newTestLoop(
		&stubProvider{nodes: healthyWorkers()},
		&stubResources{health: map[string]float64{"postgres": 0.0}},
		dispatcher, store, nil,
	)

	stats, err := loop.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Greater(t, stats.VulnerabilitiesDetected, 0)
	assert.Equal(t, 1, stats.ActionsTaken)
	assert.Equal(t, 1, stats.RecoveriesSucceeded)
	assert.Equal(t, 0, stats.RecoveriesFailed)

	actions := dispatcher.dispatched()
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionRunPlaybookRecovery, actions[0].Kind)
	assert.Equal(t, "resource:postgres", actions[0].TargetID)

	// Both the cycle and its recovery reached the store
	cycles, err := store.ListCycleStats(0)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, stats.CycleID, cycles[0].CycleID)

	recoveries, err := store.ListRecoveries(0)
	require.NoError(t, err)
	require.Len(t, recoveries, 1)
	assert.Equal(t, "postgres", recoveries[0].Service)
}

func TestRunCycleObserverErrorPropagates(t *testing.T) {
	loop := newTestLoop(
		&stubProvider{err: errors.New("agent unreachable")},
		&stubResources{},
		&stubDispatcher{}, nil, nil,
	)

	_, err := loop.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent unreachable")
}

func TestRunCyclePublishesEvents(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	loop := newTestLoop(
		&stubProvider{nodes: healthyWorkers()},
		&stubResources{health: map[string]float64{"redis": 0.0}},
		&stubDispatcher{}, nil, broker,
	)

	_, err := loop.RunCycle(context.Background())
	require.NoError(t, err)

	seen := map[events.EventType]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[events.EventCycleCompleted] {
		select {
		case ev := <-sub:
			seen[ev.Type] = true
		case <-deadline:
			t.Fatalf("timed out waiting for cycle.completed, saw %v", seen)
		}
	}
	assert.True(t, seen[events.EventVulnerabilityDetected])
	assert.True(t, seen[events.EventActionDispatched])
}

func TestLoopTicksUntilStopped(t *testing.T) {
	dispatcher := &stubDispatcher{}
	obs := observer.New(&stubProvider{nodes: healthyWorkers()}, &stubResources{})
	det := detector.New(detector.DefaultConfig())
	ctl := healer.New(healer.DefaultConfig(), dispatcher)
	loop := New(obs, det, ctl, nil, nil, 10*time.Millisecond)

	loop.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for loop.Cycle() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	loop.Stop()

	require.GreaterOrEqual(t, loop.Cycle(), uint64(2))
	after := loop.Cycle()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, loop.Cycle(), "loop kept running after Stop")
}
