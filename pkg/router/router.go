package router

import (
	"context"
	"fmt"

	"github.com/mendhq/mend/pkg/types"
)

// WorkerExecutor executes worker-level actions (restart, rebalance).
// It is an external collaborator; this package only routes to it.
type WorkerExecutor interface {
	Execute(ctx context.Context, action types.HealingAction) error
}

// ResourceRecoverer runs the playbook recovery protocol for a named
// service. Satisfied by recovery.Orchestrator.
type ResourceRecoverer interface {
	Recover(ctx context.Context, service string) types.RecoveryResult
}

// Router dispatches a healing action to the worker executor or, for
// resource-scoped targets, to the recovery orchestrator. The decision
// is the target namespace alone; the controller never needs to know
// which side a target lives on.
type Router struct {
	workers   WorkerExecutor
	resources ResourceRecoverer
}

// New creates an action router
func New(workers WorkerExecutor, resources ResourceRecoverer) *Router {
	return &Router{workers: workers, resources: resources}
}

// Dispatch routes one action and returns its result
func (r *Router) Dispatch(ctx context.Context, action types.HealingAction) types.ActionResult {
	if service := types.ResourceName(action.TargetID); service != "" {
		result := r.resources.Recover(ctx, service)
		res := types.ActionResult{Action: action, Recovery: &result}
		if result.Status == types.RecoveryFailed {
			res.Err = fmt.Errorf("recovery of %s failed after %d attempts: %s",
				service, result.Attempts, result.LastError)
		}
		return res
	}

	if r.workers == nil {
		return types.ActionResult{
			Action: action,
			Err:    fmt.Errorf("no worker executor configured for action %s on %s", action.Kind, action.TargetID),
		}
	}
	if err := r.workers.Execute(ctx, action); err != nil {
		return types.ActionResult{
			Action: action,
			Err:    fmt.Errorf("worker executor failed: %w", err),
		}
	}
	return types.ActionResult{Action: action}
}
