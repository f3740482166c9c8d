package healer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mendhq/mend/pkg/log"
	"github.com/mendhq/mend/pkg/metrics"
	"github.com/mendhq/mend/pkg/types"
)

// Config exposes the controller's operator knobs
type Config struct {
	// MaxActionsPerCycle bounds the blast radius of one cycle
	// (default: 3)
	MaxActionsPerCycle int

	// ActionCooldown is the minimum time between two dispatches of the
	// same (kind, target) pair. Zero disables cooldowns, which tests
	// rely on.
	ActionCooldown time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxActionsPerCycle: 3,
		ActionCooldown:     10 * time.Second,
	}
}

// Dispatcher executes one decided action. Satisfied by router.Router.
type Dispatcher interface {
	Dispatch(ctx context.Context, action types.HealingAction) types.ActionResult
}

// typeToAction is the default vulnerability-to-action mapping, applied
// before the resource override
var typeToAction = map[types.VulnerabilityKind]types.ActionKind{
	types.VulnSinglePointOfFailure: types.ActionRestartWorker,
	types.VulnBottleneck:           types.ActionRebalance,
	types.VulnCascadingFailure:     types.ActionRebalance,
	types.VulnResourceUnreachable:  types.ActionRestartResource,
}

// Controller maps detected vulnerabilities to a bounded action list and
// dispatches it. Per (kind, target) the implicit state machine is
// idle -> eligible -> dispatched -> cooling-down -> eligible.
type Controller struct {
	config     Config
	dispatcher Dispatcher

	mu           sync.Mutex
	lastDispatch map[cooldownKey]time.Time

	now    func() time.Time
	logger zerolog.Logger
}

type cooldownKey struct {
	kind   types.ActionKind
	target string
}

// New creates a healing controller
func New(config Config, dispatcher Dispatcher) *Controller {
	if config.MaxActionsPerCycle <= 0 {
		config.MaxActionsPerCycle = DefaultConfig().MaxActionsPerCycle
	}
	return &Controller{
		config:       config,
		dispatcher:   dispatcher,
		lastDispatch: make(map[cooldownKey]time.Time),
		now:          time.Now,
		logger:       log.WithComponent("healer"),
	}
}

// Decide turns detected vulnerabilities into a bounded, deduplicated,
// cooldown-filtered action list. The second return value is the number
// of actions suppressed by an active cooldown.
func (c *Controller) Decide(vulns []types.Vulnerability) ([]types.HealingAction, int) {
	candidates := c.mapToActions(vulns)
	eligible, suppressed := c.filterCooldowns(candidates)

	// Prefer higher-severity vulnerabilities when truncating. Stable
	// sort keeps detection order within a severity band deterministic.
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Severity > eligible[j].Severity
	})

	if len(eligible) > c.config.MaxActionsPerCycle {
		for _, dropped := range eligible[c.config.MaxActionsPerCycle:] {
			c.logger.Debug().
				Str("action", string(dropped.Kind)).
				Str("target", dropped.TargetID).
				Msg("action dropped by per-cycle cap")
			metrics.ActionsSuppressed.WithLabelValues("cap").Inc()
		}
		eligible = eligible[:c.config.MaxActionsPerCycle]
	}

	return eligible, suppressed
}

// mapToActions applies the default mapping, the resource override, and
// same-target deduplication (resource recovery takes precedence over
// topology-level actions like rebalance)
func (c *Controller) mapToActions(vulns []types.Vulnerability) []types.HealingAction {
	var order []string
	byTarget := make(map[string]types.HealingAction)

	for _, v := range vulns {
		kind, known := typeToAction[v.Kind]
		if !known {
			continue
		}

		action := types.HealingAction{
			Kind:     kind,
			TargetID: v.TargetID,
			Reason:   string(v.Kind) + ": " + v.Detail,
			Severity: v.Severity,
		}

		// Resource-scoped targets always recover through their
		// playbook, whatever the vulnerability kind was
		if types.ResourceName(v.TargetID) != "" {
			action.Kind = types.ActionRunPlaybookRecovery
		}

		existing, seen := byTarget[v.TargetID]
		if !seen {
			byTarget[v.TargetID] = action
			order = append(order, v.TargetID)
			continue
		}

		// One action per target per cycle; keep the playbook override
		// and otherwise the higher severity
		metrics.ActionsSuppressed.WithLabelValues("override").Inc()
		if existing.Kind == types.ActionRunPlaybookRecovery {
			if action.Severity > existing.Severity {
				existing.Severity = action.Severity
				byTarget[v.TargetID] = existing
			}
			continue
		}
		if action.Kind == types.ActionRunPlaybookRecovery || action.Severity > existing.Severity {
			byTarget[v.TargetID] = action
		}
	}

	actions := make([]types.HealingAction, 0, len(order))
	for _, target := range order {
		actions = append(actions, byTarget[target])
	}
	return actions
}

// filterCooldowns drops actions whose (kind, target) pair was
// dispatched within the cooldown window
func (c *Controller) filterCooldowns(actions []types.HealingAction) ([]types.HealingAction, int) {
	if c.config.ActionCooldown <= 0 {
		return actions, 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var eligible []types.HealingAction
	suppressed := 0
	for _, a := range actions {
		key := cooldownKey{kind: a.Kind, target: a.TargetID}
		if last, ok := c.lastDispatch[key]; ok && now.Sub(last) < c.config.ActionCooldown {
			suppressed++
			metrics.ActionsSuppressed.WithLabelValues("cooldown").Inc()
			c.logger.Debug().
				Str("action", string(a.Kind)).
				Str("target", a.TargetID).
				Dur("remaining", c.config.ActionCooldown-now.Sub(last)).
				Msg("action suppressed by cooldown")
			continue
		}
		eligible = append(eligible, a)
	}
	return eligible, suppressed
}

// Act dispatches each action. The dispatch timestamp is recorded before
// invoking the router so an overlapping cycle cannot double-dispatch,
// and one action's failure never aborts the rest of the list.
func (c *Controller) Act(ctx context.Context, actions []types.HealingAction) []types.ActionResult {
	results := make([]types.ActionResult, 0, len(actions))
	for _, action := range actions {
		c.recordDispatch(action)
		metrics.ActionsDispatched.WithLabelValues(string(action.Kind)).Inc()

		result := c.dispatcher.Dispatch(ctx, action)
		if result.Err != nil {
			c.logger.Error().
				Err(result.Err).
				Str("action", string(action.Kind)).
				Str("target", action.TargetID).
				Msg("action dispatch failed")
		} else {
			c.logger.Info().
				Str("action", string(action.Kind)).
				Str("target", action.TargetID).
				Str("reason", action.Reason).
				Msg("action dispatched")
		}
		results = append(results, result)
	}
	return results
}

func (c *Controller) recordDispatch(action types.HealingAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastDispatch[cooldownKey{kind: action.Kind, target: action.TargetID}] = c.now()
}
