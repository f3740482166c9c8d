package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendhq/mend/pkg/types"
)

const sampleFleet = `
version: "1.0"
workers:
  - id: runner-1
    role: runner
    dependsOn: [postgres]
    checkCommand: "true"
    restartCommand: "true"
    rebalanceCommand: "true"
  - id: runner-2
    role: runner
    dependsOn: [postgres, redis]
    checkCommand: "false"
`

func TestParseFleet(t *testing.T) {
	fleet, err := ParseFleet([]byte(sampleFleet))
	require.NoError(t, err)
	assert.Equal(t, 2, fleet.Len())

	spec, ok := fleet.get("runner-2")
	require.True(t, ok)
	assert.Equal(t, "runner", spec.Role)
	assert.Equal(t, []string{"postgres", "redis"}, spec.DependsOn)
	assert.Empty(t, spec.RestartCommand)
}

func TestParseFleetValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad version", "version: \"2.0\"\nworkers: []\n"},
		{"missing id", "version: \"1.0\"\nworkers:\n  - role: runner\n    checkCommand: \"true\"\n"},
		{"missing check", "version: \"1.0\"\nworkers:\n  - id: w1\n"},
		{"duplicate id", "version: \"1.0\"\nworkers:\n  - id: w1\n    checkCommand: \"true\"\n  - id: w1\n    checkCommand: \"true\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFleet([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFleet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFleet), 0644))

	fleet, err := LoadFleet(path)
	require.NoError(t, err)
	assert.Equal(t, 2, fleet.Len())
}

func TestWorkersProbe(t *testing.T) {
	fleet, err := ParseFleet([]byte(sampleFleet))
	require.NoError(t, err)

	nodes, err := fleet.Workers()
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	byID := map[string]types.HealthNode{}
	for _, n := range nodes {
		byID[n.ID] = n
	}

	up := byID["runner-1"]
	assert.Equal(t, types.NodeKindWorker, up.Kind)
	assert.Equal(t, 1.0, up.Responsiveness)
	assert.True(t, up.HasLatency)
	assert.Equal(t, []string{"postgres"}, up.DependsOn)
	assert.False(t, up.LastObservedAt.IsZero())

	down := byID["runner-2"]
	assert.Equal(t, 0.0, down.Responsiveness)
	assert.False(t, down.HasLatency)
}

func TestProbeTimeoutMarksDown(t *testing.T) {
	fleet, err := NewFleet([]Spec{
		{ID: "slow", Role: "runner", CheckCommand: "sleep 5"},
	})
	require.NoError(t, err)
	fleet.ProbeTimeout = 50 * time.Millisecond

	nodes, err := fleet.Workers()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 0.0, nodes[0].Responsiveness)
}

func TestExecuteRunsDeclaredCommand(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "restarted")
	fleet, err := NewFleet([]Spec{
		{ID: "runner-1", CheckCommand: "true", RestartCommand: "touch " + marker},
	})
	require.NoError(t, err)

	err = fleet.Execute(context.Background(), types.HealingAction{
		Kind:     types.ActionRestartWorker,
		TargetID: "runner-1",
	})
	require.NoError(t, err)

	_, statErr := os.Stat(marker)
	assert.NoError(t, statErr)
}

func TestExecuteErrors(t *testing.T) {
	fleet, err := NewFleet([]Spec{
		{ID: "runner-1", CheckCommand: "true", RestartCommand: "exit 3"},
	})
	require.NoError(t, err)

	// Unknown worker
	err = fleet.Execute(context.Background(), types.HealingAction{
		Kind: types.ActionRestartWorker, TargetID: "ghost",
	})
	assert.ErrorContains(t, err, "unknown worker")

	// No command declared for the action
	err = fleet.Execute(context.Background(), types.HealingAction{
		Kind: types.ActionRebalance, TargetID: "runner-1",
	})
	assert.ErrorContains(t, err, "no command declared")

	// Command itself fails
	err = fleet.Execute(context.Background(), types.HealingAction{
		Kind: types.ActionRestartWorker, TargetID: "runner-1",
	})
	assert.ErrorContains(t, err, "failed")
}
