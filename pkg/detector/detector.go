package detector

import (
	"fmt"
	"math"

	"github.com/mendhq/mend/pkg/types"
)

// Config tunes the detection rules
type Config struct {
	// DownThreshold is the responsiveness below which a node is
	// considered down (default: 0.1)
	DownThreshold float64

	// LatencyStdDevs is how many standard deviations above the peer
	// mean a node's latency must be to count as a bottleneck
	// (default: 2.0)
	LatencyStdDevs float64

	// CascadeThreshold is the number of unhealthy nodes sharing a
	// dependency above which a cascading failure is reported
	// (default: 2, i.e. 3 or more fire)
	CascadeThreshold int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		DownThreshold:    0.1,
		LatencyStdDevs:   2.0,
		CascadeThreshold: 2,
	}
}

// Detector analyzes a health snapshot for structural weaknesses.
// Rules fire independently and are never deduplicated here; folding
// overlapping findings into one action is the healing controller's job.
type Detector struct {
	config Config
	cycle  uint64
}

// New creates a detector
func New(config Config) *Detector {
	if config.DownThreshold <= 0 {
		config.DownThreshold = 0.1
	}
	if config.LatencyStdDevs <= 0 {
		config.LatencyStdDevs = 2.0
	}
	if config.CascadeThreshold <= 0 {
		config.CascadeThreshold = 2
	}
	return &Detector{config: config}
}

// Detect runs all rules against a snapshot and returns every finding
func (d *Detector) Detect(nodes []types.HealthNode) []types.Vulnerability {
	d.cycle++

	var vulns []types.Vulnerability
	vulns = append(vulns, d.detectSinglePointsOfFailure(nodes)...)
	vulns = append(vulns, d.detectUnreachableResources(nodes)...)
	vulns = append(vulns, d.detectBottlenecks(nodes)...)
	vulns = append(vulns, d.detectCascadingFailures(nodes)...)
	return vulns
}

// detectSinglePointsOfFailure flags down nodes with no healthy peer of
// the same role
func (d *Detector) detectSinglePointsOfFailure(nodes []types.HealthNode) []types.Vulnerability {
	healthyPerRole := make(map[string]int)
	for _, n := range nodes {
		if n.Responsiveness >= d.config.DownThreshold {
			healthyPerRole[n.Role]++
		}
	}

	var vulns []types.Vulnerability
	for _, n := range nodes {
		if n.Responsiveness >= d.config.DownThreshold {
			continue
		}
		if healthyPerRole[n.Role] > 0 {
			continue // a redundant peer can absorb the load
		}

		severity := types.SeverityHigh
		if n.IsResource() {
			severity = types.SeverityCritical
		}
		vulns = append(vulns, types.Vulnerability{
			Kind:            types.VulnSinglePointOfFailure,
			TargetID:        n.ID,
			Severity:        severity,
			Detail:          fmt.Sprintf("node down with no healthy %q peer", n.Role),
			DetectedAtCycle: d.cycle,
		})
	}
	return vulns
}

// detectUnreachableResources flags every down synthetic resource node
func (d *Detector) detectUnreachableResources(nodes []types.HealthNode) []types.Vulnerability {
	var vulns []types.Vulnerability
	for _, n := range nodes {
		if !n.IsResource() || n.Responsiveness >= d.config.DownThreshold {
			continue
		}
		vulns = append(vulns, types.Vulnerability{
			Kind:            types.VulnResourceUnreachable,
			TargetID:        n.ID,
			Severity:        types.SeverityCritical,
			Detail:          "infrastructure resource unreachable",
			DetectedAtCycle: d.cycle,
		})
	}
	return vulns
}

// detectBottlenecks flags nodes whose latency is far above the peer
// population. Nodes without a latency sample are excluded from the
// population entirely.
func (d *Detector) detectBottlenecks(nodes []types.HealthNode) []types.Vulnerability {
	var samples []float64
	for _, n := range nodes {
		if n.HasLatency {
			samples = append(samples, n.LatencyMs)
		}
	}
	// Mean and stddev are meaningless for tiny populations
	if len(samples) < 3 {
		return nil
	}

	mean, stddev := meanStdDev(samples)
	if stddev == 0 {
		return nil
	}
	cutoff := mean + d.config.LatencyStdDevs*stddev

	var vulns []types.Vulnerability
	for _, n := range nodes {
		if !n.HasLatency || n.LatencyMs <= cutoff {
			continue
		}
		vulns = append(vulns, types.Vulnerability{
			Kind:            types.VulnBottleneck,
			TargetID:        n.ID,
			Severity:        types.SeverityMedium,
			Detail:          fmt.Sprintf("latency %.0fms exceeds %.0fms cutoff (mean %.0fms)", n.LatencyMs, cutoff, mean),
			DetectedAtCycle: d.cycle,
		})
	}
	return vulns
}

// detectCascadingFailures flags a shared dependency when too many
// unhealthy nodes point at it in the same cycle
func (d *Detector) detectCascadingFailures(nodes []types.HealthNode) []types.Vulnerability {
	unhealthyByDep := make(map[string]int)
	for _, n := range nodes {
		if n.Responsiveness >= d.config.DownThreshold {
			continue
		}
		for _, dep := range n.DependsOn {
			unhealthyByDep[dep]++
		}
	}

	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}

	var vulns []types.Vulnerability
	for dep, count := range unhealthyByDep {
		if count <= d.config.CascadeThreshold {
			continue
		}
		// A dependency that is not itself a snapshot node is assumed to
		// be an infrastructure resource
		target := dep
		if !ids[dep] {
			target = types.ResourceID(dep)
		}
		vulns = append(vulns, types.Vulnerability{
			Kind:            types.VulnCascadingFailure,
			TargetID:        target,
			Severity:        types.SeverityCritical,
			Detail:          fmt.Sprintf("%d unhealthy nodes share dependency %q", count, dep),
			DetectedAtCycle: d.cycle,
		})
	}
	return vulns
}

func meanStdDev(samples []float64) (mean, stddev float64) {
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))

	var variance float64
	for _, v := range samples {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(samples))
	return mean, math.Sqrt(variance)
}
