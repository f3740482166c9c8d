/*
Package reconciler drives the observe-detect-heal cycle.

The loop runs one cycle per tick: observe a health snapshot, detect
vulnerabilities, decide and dispatch healing actions, then persist the
cycle's stats and publish egress events. Cycles serialize on an
internal mutex as a convenience, but correctness never depends on it;
overlapping invocations are safe because dispatch safety lives in the
healer's cooldown bookkeeping and the per-resource recovery lock.

RunCycle exposes a single on-demand cycle for the CLI and tests.
*/
package reconciler
