package types

import (
	"strings"
	"time"
)

// NodeKind distinguishes real workers from synthetic infrastructure nodes
type NodeKind string

const (
	NodeKindWorker   NodeKind = "worker"
	NodeKindResource NodeKind = "resource"
)

// ResourcePrefix namespaces synthetic resource nodes so a target ID
// carries its kind (e.g. "resource:postgres")
const ResourcePrefix = "resource:"

// HealthNode is one entry in a health snapshot: either a worker reported
// by the worker provider or a synthetic node for an unhealthy resource
type HealthNode struct {
	ID             string
	Kind           NodeKind
	Role           string
	Responsiveness float64 // 0.0 = believed down, 1.0 = healthy
	LatencyMs      float64 // recent task latency; valid only if HasLatency
	HasLatency     bool
	DependsOn      []string // dependency edges (e.g. worker -> "postgres")
	LastObservedAt time.Time
}

// IsResource reports whether the node is a synthetic resource node
func (n *HealthNode) IsResource() bool {
	return n.Kind == NodeKindResource
}

// ResourceName strips the resource namespace from a target ID.
// Returns "" if the ID is not resource-scoped.
func ResourceName(targetID string) string {
	if strings.HasPrefix(targetID, ResourcePrefix) {
		return targetID[len(ResourcePrefix):]
	}
	return ""
}

// ResourceID builds a namespaced target ID for an infrastructure resource
func ResourceID(name string) string {
	return ResourcePrefix + name
}

// VulnerabilityKind classifies a structural weakness in a snapshot
type VulnerabilityKind string

const (
	VulnSinglePointOfFailure VulnerabilityKind = "single-point-of-failure"
	VulnBottleneck           VulnerabilityKind = "bottleneck"
	VulnCascadingFailure     VulnerabilityKind = "cascading-failure"
	VulnResourceUnreachable  VulnerabilityKind = "resource-unreachable"
)

// Severity orders vulnerabilities when the controller truncates actions
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Vulnerability is a detected weakness, recomputed every cycle and never
// stored long-term
type Vulnerability struct {
	Kind            VulnerabilityKind
	TargetID        string
	Severity        Severity
	Detail          string
	DetectedAtCycle uint64
}

// ActionKind is the bounded action vocabulary of the healing controller
type ActionKind string

const (
	ActionRestartWorker       ActionKind = "restart-worker"
	ActionRebalance           ActionKind = "rebalance"
	ActionRestartResource     ActionKind = "restart-resource"
	ActionRunPlaybookRecovery ActionKind = "run-playbook-recovery"
)

// HealingAction is one remediation decision against one target
type HealingAction struct {
	Kind     ActionKind
	TargetID string
	Reason   string
	Severity Severity
}

// ActionResult records the outcome of dispatching one action
type ActionResult struct {
	Action   HealingAction
	Err      error
	Recovery *RecoveryResult // set when the action routed to the orchestrator
}

// RecoveryStatus is the terminal status of one Recover call
type RecoveryStatus string

const (
	RecoveryRecovered      RecoveryStatus = "recovered"
	RecoveryFailed         RecoveryStatus = "failed"
	RecoverySkippedLocked  RecoveryStatus = "skipped-locked"
	RecoveryAlreadyHealthy RecoveryStatus = "already-healthy"
	RecoveryNoPlaybook     RecoveryStatus = "no-playbook"
)

// RecoveryResult is the outcome of one playbook recovery protocol run
type RecoveryResult struct {
	Service    string
	Status     RecoveryStatus
	Attempts   int
	StepsRun   int
	Duration   time.Duration
	LastError  string
	FinishedAt time.Time
}

// FailureKind is the classifier's failure taxonomy for raw process output
type FailureKind string

const (
	FailureTestDefect       FailureKind = "test-defect"
	FailureInfraUnreachable FailureKind = "infra-unreachable"
	FailureFlaky            FailureKind = "flaky"
	FailureUnknown          FailureKind = "unknown"
)

// CycleStats accumulates per-cycle observability counters.
// Not required for correctness; persisted for operators only.
type CycleStats struct {
	CycleID                     string
	Cycle                       uint64
	StartedAt                   time.Time
	Duration                    time.Duration
	NodesObserved               int
	VulnerabilitiesDetected     int
	ActionsTaken                int
	ActionsSuppressedByCooldown int
	RecoveriesSucceeded         int
	RecoveriesFailed            int
	RecoveriesSkipped           int
}
