package observer

import (
	"fmt"
	"sort"
	"time"

	"github.com/mendhq/mend/pkg/types"
)

// WorkerProvider supplies the current worker fleet. It is an external
// collaborator; this package never mutates what it returns.
type WorkerProvider interface {
	Workers() ([]types.HealthNode, error)
}

// ResourceHealth supplies believed resource responsiveness, keyed by
// resource name. Satisfied by classifier.Classifier.
type ResourceHealth interface {
	CurrentHealth() map[string]float64
}

// Observer merges worker health with resource health into one uniform
// snapshot. Unhealthy resources become synthetic resource-kind nodes
// under the "resource:" namespace so the rest of the pipeline sees a
// single node shape. Composition over the real provider keeps the
// provider's own contract untouched and testable in isolation.
type Observer struct {
	provider  WorkerProvider
	resources ResourceHealth
	now       func() time.Time
}

// New creates an observer over a worker provider and a resource health
// source
func New(provider WorkerProvider, resources ResourceHealth) *Observer {
	return &Observer{
		provider:  provider,
		resources: resources,
		now:       time.Now,
	}
}

// Observe returns the current health snapshot: all provider workers
// plus one synthetic node per unhealthy resource. Pure merge; inputs
// are copied, never mutated.
func (o *Observer) Observe() ([]types.HealthNode, error) {
	workers, err := o.provider.Workers()
	if err != nil {
		return nil, fmt.Errorf("worker provider failed: %w", err)
	}

	now := o.now()
	nodes := make([]types.HealthNode, 0, len(workers))
	for _, w := range workers {
		node := w
		if node.Kind == "" {
			node.Kind = types.NodeKindWorker
		}
		if node.LastObservedAt.IsZero() {
			node.LastObservedAt = now
		}
		nodes = append(nodes, node)
	}

	health := o.resources.CurrentHealth()
	names := make([]string, 0, len(health))
	for name, responsiveness := range health {
		if responsiveness == 0.0 {
			names = append(names, name)
		}
	}
	sort.Strings(names) // deterministic snapshot order

	for _, name := range names {
		nodes = append(nodes, types.HealthNode{
			ID:             types.ResourceID(name),
			Kind:           types.NodeKindResource,
			Role:           "infra",
			Responsiveness: 0.0,
			LastObservedAt: now,
		})
	}

	return nodes, nil
}
