/*
Package types defines the shared vocabulary of the healing loop: health
nodes and the resource: target namespace, vulnerabilities and their
severities, healing actions, recovery outcomes, the failure taxonomy
and per-cycle stats.

Types here are plain data. Behavior lives in the packages that produce
and consume them.
*/
package types
