/*
Package classifier folds raw worker output into per-resource health.

Feed scans text line by line against an ordered rule list; the first
matching rule wins for a line. Each rule names the resource it concerns
and a failure kind:

	infra-unreachable  connection refused, DNS failure, timeouts
	test-defect        assertion failures, real test bugs
	flaky              known flaky-test markers
	unknown            everything else that still names a resource

Only infra-unreachable marks a resource down (responsiveness 0.0). A
failing assertion is a worker problem, not an infrastructure problem,
and must never trigger infrastructure recovery.

CurrentHealth returns the live view and quietly restores any resource
that has stayed silent for the quiet period, covering fixes that happen
out of band. The package ships a default rule set for the common
signatures (postgres, redis, rabbitmq, generic dial and DNS errors);
callers prepend their own rules to take precedence.
*/
package classifier
