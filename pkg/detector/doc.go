/*
Package detector finds structural vulnerabilities in a health snapshot.

Detection is stateless per snapshot apart from a cycle counter stamped
into each finding. Four rules run independently over the same snapshot
and never dedupe against each other; the healing controller owns
per-target conflict resolution.

	single-point-of-failure  node down with no healthy same-role peer
	resource-unreachable     any down resource node
	bottleneck               latency more than N stddevs above the mean
	cascading-failure        more than K unhealthy nodes sharing one
	                         dependency edge

Bottleneck detection needs at least three latency samples to produce a
meaningful population; nodes without samples are excluded rather than
treated as zero. Vulnerabilities are recomputed every cycle and never
stored, so a fixed problem disappears by itself.
*/
package detector
