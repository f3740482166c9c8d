package classifier

import (
	"regexp"

	"github.com/mendhq/mend/pkg/types"
)

// DefaultRules covers the common infrastructure signatures seen in test
// runner and worker output. Order matters: specific signatures come
// before generic ones so the first match per line picks the most
// precise classification.
func DefaultRules() []Rule {
	return []Rule{
		// Connection refused on well-known ports
		{regexp.MustCompile(`ECONNREFUSED.*:5432`), "postgres", types.FailureInfraUnreachable},
		{regexp.MustCompile(`ECONNREFUSED.*:6379`), "redis", types.FailureInfraUnreachable},
		{regexp.MustCompile(`ECONNREFUSED.*:5672`), "rabbitmq", types.FailureInfraUnreachable},
		{regexp.MustCompile(`dial tcp.*:5432.*connection refused`), "postgres", types.FailureInfraUnreachable},
		{regexp.MustCompile(`dial tcp.*:6379.*connection refused`), "redis", types.FailureInfraUnreachable},
		{regexp.MustCompile(`dial tcp.*:5672.*connection refused`), "rabbitmq", types.FailureInfraUnreachable},

		// Host resolution failures name the service directly
		{regexp.MustCompile(`getaddrinfo (ENOTFOUND|EAI_AGAIN) postgres`), "postgres", types.FailureInfraUnreachable},
		{regexp.MustCompile(`getaddrinfo (ENOTFOUND|EAI_AGAIN) redis`), "redis", types.FailureInfraUnreachable},
		{regexp.MustCompile(`getaddrinfo (ENOTFOUND|EAI_AGAIN) rabbitmq`), "rabbitmq", types.FailureInfraUnreachable},

		// Timeouts against known ports
		{regexp.MustCompile(`(ETIMEDOUT|i/o timeout).*:5432`), "postgres", types.FailureInfraUnreachable},
		{regexp.MustCompile(`(ETIMEDOUT|i/o timeout).*:6379`), "redis", types.FailureInfraUnreachable},

		// Driver-level messages
		{regexp.MustCompile(`the database system is (starting up|shutting down)`), "postgres", types.FailureInfraUnreachable},
		{regexp.MustCompile(`(?i)redis connection (lost|refused|closed)`), "redis", types.FailureInfraUnreachable},

		// Test defects and flakes: reported, never remediated
		{regexp.MustCompile(`(AssertionError|assertion failed|expect\(.*\)\.to)`), "test-suite", types.FailureTestDefect},
		{regexp.MustCompile(`(?i)(flaky|retry \d+ of \d+ succeeded)`), "test-suite", types.FailureFlaky},
	}
}
