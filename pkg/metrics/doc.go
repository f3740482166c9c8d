/*
Package metrics provides Prometheus metrics and component health for
the mend daemon.

Collectors are package-level and registered at init, so any package can
increment them without plumbing a registry. The component health
registry backs the /health, /ready and /live endpoints; readiness
requires every critical component (playbooks, loop) to be healthy,
liveness only requires the process to answer.
*/
package metrics
