package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendhq/mend/pkg/types"
)

func findByKind(vulns []types.Vulnerability, kind types.VulnerabilityKind) []types.Vulnerability {
	var out []types.Vulnerability
	for _, v := range vulns {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

func TestDetectSinglePointOfFailure(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []types.HealthNode
		wantSPOFs []string
	}{
		{
			name: "down node with healthy same-role peer is covered",
			nodes: []types.HealthNode{
				{ID: "worker-1", Role: "tester", Responsiveness: 0.0},
				{ID: "worker-2", Role: "tester", Responsiveness: 0.9},
			},
			wantSPOFs: nil,
		},
		{
			name: "down node with no redundant peer",
			nodes: []types.HealthNode{
				{ID: "worker-1", Role: "tester", Responsiveness: 0.05},
				{ID: "worker-2", Role: "builder", Responsiveness: 0.9},
			},
			wantSPOFs: []string{"worker-1"},
		},
		{
			name: "down resource node",
			nodes: []types.HealthNode{
				{ID: "resource:postgres", Kind: types.NodeKindResource, Role: "infra", Responsiveness: 0.0},
				{ID: "worker-1", Role: "tester", Responsiveness: 1.0},
			},
			wantSPOFs: []string{"resource:postgres"},
		},
		{
			name:      "empty snapshot",
			nodes:     nil,
			wantSPOFs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vulns := New(DefaultConfig()).Detect(tt.nodes)
			spofs := findByKind(vulns, types.VulnSinglePointOfFailure)

			var got []string
			for _, v := range spofs {
				got = append(got, v.TargetID)
			}
			assert.Equal(t, tt.wantSPOFs, got)
		})
	}
}

func TestDetectResourceUnreachableFiresIndependently(t *testing.T) {
	nodes := []types.HealthNode{
		{ID: "resource:postgres", Kind: types.NodeKindResource, Role: "infra", Responsiveness: 0.0},
	}

	vulns := New(DefaultConfig()).Detect(nodes)

	// Both the SPOF rule and the unreachable-resource rule fire for the
	// same node; dedupe is the controller's job, not the detector's.
	assert.Len(t, findByKind(vulns, types.VulnSinglePointOfFailure), 1)
	unreachable := findByKind(vulns, types.VulnResourceUnreachable)
	require.Len(t, unreachable, 1)
	assert.Equal(t, "resource:postgres", unreachable[0].TargetID)
	assert.Equal(t, types.SeverityCritical, unreachable[0].Severity)
}

func TestDetectBottleneck(t *testing.T) {
	nodes := []types.HealthNode{
		{ID: "worker-1", Role: "tester", Responsiveness: 1.0, HasLatency: true, LatencyMs: 100},
		{ID: "worker-2", Role: "tester", Responsiveness: 1.0, HasLatency: true, LatencyMs: 110},
		{ID: "worker-3", Role: "tester", Responsiveness: 1.0, HasLatency: true, LatencyMs: 90},
		{ID: "worker-4", Role: "tester", Responsiveness: 1.0, HasLatency: true, LatencyMs: 2000},
	}

	vulns := New(DefaultConfig()).Detect(nodes)

	bottlenecks := findByKind(vulns, types.VulnBottleneck)
	require.Len(t, bottlenecks, 1)
	assert.Equal(t, "worker-4", bottlenecks[0].TargetID)
}

func TestDetectBottleneckSkipsSmallPopulations(t *testing.T) {
	nodes := []types.HealthNode{
		{ID: "worker-1", Responsiveness: 1.0, HasLatency: true, LatencyMs: 10},
		{ID: "worker-2", Responsiveness: 1.0, HasLatency: true, LatencyMs: 9000},
	}

	vulns := New(DefaultConfig()).Detect(nodes)
	assert.Empty(t, findByKind(vulns, types.VulnBottleneck))
}

func TestDetectBottleneckIgnoresNodesWithoutSamples(t *testing.T) {
	nodes := []types.HealthNode{
		{ID: "worker-1", Responsiveness: 1.0, HasLatency: true, LatencyMs: 100},
		{ID: "worker-2", Responsiveness: 1.0, HasLatency: true, LatencyMs: 100},
		{ID: "worker-3", Responsiveness: 1.0, HasLatency: true, LatencyMs: 100},
		{ID: "worker-4", Responsiveness: 1.0}, // no sample
	}

	vulns := New(DefaultConfig()).Detect(nodes)
	assert.Empty(t, findByKind(vulns, types.VulnBottleneck))
}

func TestDetectCascadingFailure(t *testing.T) {
	nodes := []types.HealthNode{
		{ID: "worker-1", Role: "tester", Responsiveness: 0.0, DependsOn: []string{"postgres"}},
		{ID: "worker-2", Role: "tester", Responsiveness: 0.0, DependsOn: []string{"postgres"}},
		{ID: "worker-3", Role: "tester", Responsiveness: 0.0, DependsOn: []string{"postgres"}},
		{ID: "worker-4", Role: "tester", Responsiveness: 1.0, DependsOn: []string{"postgres"}},
	}

	vulns := New(DefaultConfig()).Detect(nodes)

	cascades := findByKind(vulns, types.VulnCascadingFailure)
	require.Len(t, cascades, 1)
	// The shared dependency is not a snapshot node, so it is targeted
	// as a resource
	assert.Equal(t, "resource:postgres", cascades[0].TargetID)
}

func TestDetectCascadingFailureBelowThreshold(t *testing.T) {
	nodes := []types.HealthNode{
		{ID: "worker-1", Responsiveness: 0.0, DependsOn: []string{"postgres"}},
		{ID: "worker-2", Responsiveness: 0.0, DependsOn: []string{"postgres"}},
	}

	vulns := New(DefaultConfig()).Detect(nodes)
	assert.Empty(t, findByKind(vulns, types.VulnCascadingFailure))
}
