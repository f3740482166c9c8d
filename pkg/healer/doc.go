/*
Package healer turns detected vulnerabilities into a bounded set of
healing actions and dispatches them.

The controller is deliberately split into a pure decision step and a
side-effecting dispatch step:

	vulnerabilities ──▶ Decide ──▶ actions ──▶ Act ──▶ dispatcher

# Decision Pipeline

Decide applies three filters in order:

 1. Mapping and override. Each vulnerability kind maps to a default
    action (single-point-of-failure → restart-worker, bottleneck and
    cascading-failure → rebalance, resource-unreachable →
    restart-resource). Any action whose target carries the resource:
    namespace is overridden to run-playbook-recovery, and only one
    action survives per target, keeping the playbook override and the
    highest severity seen for that target.

 2. Cooldown. A per-(action kind, target) cooldown suppresses actions
    dispatched too recently. A zero or negative cooldown disables the
    filter entirely.

 3. Cap. Surviving actions are sorted by severity, highest first, and
    truncated at MaxActionsPerCycle. The sort is stable so equal
    severities keep detection order.

# Dispatch

Act records the cooldown timestamp before invoking the dispatcher, so
an overlapping cycle observing the map cannot double-dispatch the same
pair even while the first dispatch is still running. One action's
failure never prevents the remaining actions from dispatching; each
result carries its own error.

Cooldown state lives in memory only. A process restart forgets it,
which at worst allows one early repeat action, still subject to the
per-cycle cap.
*/
package healer
