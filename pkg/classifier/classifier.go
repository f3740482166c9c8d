package classifier

import (
	"bufio"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mendhq/mend/pkg/log"
	"github.com/mendhq/mend/pkg/types"
)

// Rule maps an output signature to a resource and failure kind.
// Rules are evaluated in order; the first match wins per line.
type Rule struct {
	Pattern  *regexp.Regexp
	Resource string
	Kind     types.FailureKind
}

// DefaultQuietPeriod is how long a resource must stay silent before its
// recorded failure is considered stale and health is restored
const DefaultQuietPeriod = 60 * time.Second

// Classifier ingests raw process output incrementally and maintains the
// current believed health of named resources. It never executes
// external commands; all side effects are internal state.
type Classifier struct {
	mu          sync.Mutex
	rules       []Rule
	state       map[string]*resourceState
	quietPeriod time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

type resourceState struct {
	lastKind    types.FailureKind
	lastMatchAt time.Time
}

// New creates a classifier with the given rules. A zero quietPeriod
// uses DefaultQuietPeriod. The restoration timing is deliberately
// configurable: a transient failure fixed out-of-band must not pin a
// resource down forever.
func New(rules []Rule, quietPeriod time.Duration) *Classifier {
	if quietPeriod <= 0 {
		quietPeriod = DefaultQuietPeriod
	}
	return &Classifier{
		rules:       rules,
		state:       make(map[string]*resourceState),
		quietPeriod: quietPeriod,
		now:         time.Now,
		logger:      log.WithComponent("classifier"),
	}
}

// Feed scans a raw output fragment line by line against the rule set
func (c *Classifier) Feed(text string) {
	if text == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.classifyLine(scanner.Text(), now)
	}
}

func (c *Classifier) classifyLine(line string, now time.Time) {
	for _, rule := range c.rules {
		if !rule.Pattern.MatchString(line) {
			continue
		}

		st, ok := c.state[rule.Resource]
		if !ok {
			st = &resourceState{}
			c.state[rule.Resource] = st
		}
		wasDown := ok && st.lastKind == types.FailureInfraUnreachable && !c.stale(st, now)
		st.lastKind = rule.Kind
		st.lastMatchAt = now

		if rule.Kind == types.FailureInfraUnreachable && !wasDown {
			c.logger.Warn().
				Str("resource", rule.Resource).
				Str("failure_kind", string(rule.Kind)).
				Msg("resource marked unreachable")
		}
		return // first match wins per line
	}
}

// CurrentHealth returns responsiveness per resource with a recorded
// failure. Only infra-unreachable failures report 0.0; other kinds are
// visible to callers via LastFailureKind but never mark a resource down,
// so code defects are not mistaken for infra outages. Resources silent
// past the quiet period are dropped (restored to healthy).
func (c *Classifier) CurrentHealth() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	health := make(map[string]float64)
	for resource, st := range c.state {
		if c.stale(st, now) {
			delete(c.state, resource)
			c.logger.Info().Str("resource", resource).Msg("quiet period elapsed, health restored")
			continue
		}
		if st.lastKind == types.FailureInfraUnreachable {
			health[resource] = 0.0
		} else {
			health[resource] = 1.0
		}
	}
	return health
}

// LastFailureKind returns the most recent failure kind recorded for a
// resource, or FailureUnknown if none is live
func (c *Classifier) LastFailureKind(resource string) types.FailureKind {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.state[resource]
	if !ok || c.stale(st, c.now()) {
		return types.FailureUnknown
	}
	return st.lastKind
}

func (c *Classifier) stale(st *resourceState, now time.Time) bool {
	return now.Sub(st.lastMatchAt) >= c.quietPeriod
}
