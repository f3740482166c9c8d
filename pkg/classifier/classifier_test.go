package classifier

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mendhq/mend/pkg/types"
)

func TestFeedMarksResourceDown(t *testing.T) {
	c := New(DefaultRules(), time.Minute)

	c.Feed("connect ECONNREFUSED 127.0.0.1:5432")

	health := c.CurrentHealth()
	assert.Equal(t, 0.0, health["postgres"])
	assert.Equal(t, types.FailureInfraUnreachable, c.LastFailureKind("postgres"))
}

func TestFeedMultilineFragment(t *testing.T) {
	c := New(DefaultRules(), time.Minute)

	c.Feed("some harmless line\nError: connect ECONNREFUSED 127.0.0.1:6379\nmore output\ndial tcp 10.0.0.3:5432: connection refused\n")

	health := c.CurrentHealth()
	assert.Equal(t, 0.0, health["redis"])
	assert.Equal(t, 0.0, health["postgres"])
}

func TestFirstMatchWinsPerLine(t *testing.T) {
	// Two rules matching the same line for the same resource with
	// different kinds: the earlier rule must decide.
	rules := []Rule{
		{regexp.MustCompile(`boom`), "svc", types.FailureTestDefect},
		{regexp.MustCompile(`boom`), "svc", types.FailureInfraUnreachable},
	}
	c := New(rules, time.Minute)

	c.Feed("boom")

	assert.Equal(t, types.FailureTestDefect, c.LastFailureKind("svc"))
	// test-defect never marks a resource down
	assert.Equal(t, 1.0, c.CurrentHealth()["svc"])
}

func TestNonInfraKindsDoNotMarkDown(t *testing.T) {
	c := New(DefaultRules(), time.Minute)

	c.Feed("AssertionError: expected 3 to equal 4")
	c.Feed("test marked flaky, retry 2 of 3 succeeded")

	for resource, responsiveness := range c.CurrentHealth() {
		assert.Equal(t, 1.0, responsiveness, resource)
	}
}

func TestUnmatchedOutputLeavesNoState(t *testing.T) {
	c := New(DefaultRules(), time.Minute)

	c.Feed("all 412 tests passed in 3.2s")

	assert.Empty(t, c.CurrentHealth())
	assert.Equal(t, types.FailureUnknown, c.LastFailureKind("postgres"))
}

func TestQuietPeriodRestoresHealth(t *testing.T) {
	c := New(DefaultRules(), time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Feed("connect ECONNREFUSED 127.0.0.1:5432")
	assert.Equal(t, 0.0, c.CurrentHealth()["postgres"])

	// Still inside the quiet period: the failure pins health down
	now = now.Add(30 * time.Second)
	assert.Equal(t, 0.0, c.CurrentHealth()["postgres"])

	// A fresh failure resets the quiet-period clock
	c.Feed("connect ECONNREFUSED 127.0.0.1:5432")
	now = now.Add(45 * time.Second)
	assert.Equal(t, 0.0, c.CurrentHealth()["postgres"])

	// Silence past the quiet period restores the resource
	now = now.Add(16 * time.Second)
	_, present := c.CurrentHealth()["postgres"]
	assert.False(t, present, "stale failure must not pin a resource down")
	assert.Equal(t, types.FailureUnknown, c.LastFailureKind("postgres"))
}
