/*
Package router dispatches healing actions to the right backend.

Routing is by explicit target namespace, never inference: a resource:
target goes to the recovery orchestrator with the namespace stripped,
anything else goes to the worker executor. A recovery that ends in
failed surfaces as the action's error; skipped-locked and
already-healthy are normal outcomes, not errors.
*/
package router
