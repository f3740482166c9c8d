package worker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/mendhq/mend/pkg/types"
)

// Workers probes every declared worker and returns one health node per
// worker. Probes run concurrently; a probe that exits non-zero or times
// out marks the worker down. Probe duration doubles as the node's
// latency sample.
func (f *Fleet) Workers() ([]types.HealthNode, error) {
	f.mu.RLock()
	order := make([]string, len(f.order))
	copy(order, f.order)
	f.mu.RUnlock()

	nodes := make([]types.HealthNode, len(order))
	var wg sync.WaitGroup
	for i, id := range order {
		spec, ok := f.get(id)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, spec Spec) {
			defer wg.Done()
			nodes[i] = f.probe(spec)
		}(i, spec)
	}
	wg.Wait()

	return nodes, nil
}

func (f *Fleet) probe(spec Spec) types.HealthNode {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), f.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.Shell, "-c", spec.CheckCommand)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()

	elapsed := time.Since(start)
	node := types.HealthNode{
		ID:             spec.ID,
		Kind:           types.NodeKindWorker,
		Role:           spec.Role,
		Responsiveness: 1.0,
		LatencyMs:      float64(elapsed.Microseconds()) / 1000.0,
		HasLatency:     true,
		DependsOn:      spec.DependsOn,
		LastObservedAt: start,
	}

	if err != nil {
		node.Responsiveness = 0.0
		node.HasLatency = false
		f.logger.Warn().
			Str("worker", spec.ID).
			Err(err).
			Str("stderr", excerpt(stderr.String())).
			Msg("Worker probe failed")
	}
	return node
}

// Execute runs the declared command for a healing action against one
// worker. Satisfies the router's worker executor.
func (f *Fleet) Execute(ctx context.Context, action types.HealingAction) error {
	spec, ok := f.get(action.TargetID)
	if !ok {
		return fmt.Errorf("unknown worker %s", action.TargetID)
	}

	var command string
	switch action.Kind {
	case types.ActionRestartWorker:
		command = spec.RestartCommand
	case types.ActionRebalance:
		command = spec.RebalanceCommand
	default:
		return fmt.Errorf("worker %s: unsupported action %s", action.TargetID, action.Kind)
	}
	if command == "" {
		return fmt.Errorf("worker %s: no command declared for %s", action.TargetID, action.Kind)
	}

	execCtx, cancel := context.WithTimeout(ctx, f.ActionTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, f.Shell, "-c", command)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.logger.Info().
		Str("worker", action.TargetID).
		Str("action", string(action.Kind)).
		Msg("Executing worker action")

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("worker %s: %s timed out after %s", action.TargetID, action.Kind, f.ActionTimeout)
		}
		return fmt.Errorf("worker %s: %s failed: %w (%s)", action.TargetID, action.Kind, err, excerpt(stderr.String()))
	}
	return nil
}

func excerpt(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
