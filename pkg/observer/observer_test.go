package observer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendhq/mend/pkg/types"
)

type stubProvider struct {
	workers []types.HealthNode
	err     error
}

func (s *stubProvider) Workers() ([]types.HealthNode, error) {
	return s.workers, s.err
}

type stubHealth map[string]float64

func (s stubHealth) CurrentHealth() map[string]float64 {
	return s
}

func TestObserveMergesSyntheticResourceNodes(t *testing.T) {
	provider := &stubProvider{workers: []types.HealthNode{
		{ID: "worker-1", Role: "tester", Responsiveness: 0.9},
		{ID: "worker-2", Role: "tester", Responsiveness: 0.8},
	}}
	health := stubHealth{"postgres": 0.0, "redis": 0.0, "test-suite": 1.0}

	nodes, err := New(provider, health).Observe()
	require.NoError(t, err)
	require.Len(t, nodes, 4, "2 workers + 2 unhealthy resources")

	byID := make(map[string]types.HealthNode)
	for _, n := range nodes {
		byID[n.ID] = n
	}

	assert.Equal(t, types.NodeKindWorker, byID["worker-1"].Kind)

	pg, ok := byID["resource:postgres"]
	require.True(t, ok, "unhealthy resource must appear as a namespaced synthetic node")
	assert.Equal(t, types.NodeKindResource, pg.Kind)
	assert.Equal(t, 0.0, pg.Responsiveness)
	assert.False(t, pg.LastObservedAt.IsZero())

	// Healthy resources produce no synthetic node
	_, ok = byID["resource:test-suite"]
	assert.False(t, ok)
}

func TestObserveDoesNotMutateProviderNodes(t *testing.T) {
	original := types.HealthNode{ID: "worker-1", Responsiveness: 0.5}
	provider := &stubProvider{workers: []types.HealthNode{original}}

	nodes, err := New(provider, stubHealth{}).Observe()
	require.NoError(t, err)

	nodes[0].Responsiveness = 0.0
	assert.Equal(t, 0.5, provider.workers[0].Responsiveness)
}

func TestObservePropagatesProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("provider offline")}

	_, err := New(provider, stubHealth{}).Observe()
	assert.ErrorContains(t, err, "provider offline")
}

func TestObserveEmptyInputs(t *testing.T) {
	nodes, err := New(&stubProvider{}, stubHealth{}).Observe()
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
