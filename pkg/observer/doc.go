/*
Package observer merges worker health with classifier resource health
into one snapshot.

The observer decorates a worker provider: workers pass through
untouched, and each resource the classifier currently believes is down
contributes a synthetic node with the resource: ID namespace and zero
responsiveness. Downstream components treat both uniformly; the
namespace is what later routes resource targets to playbook recovery.
*/
package observer
