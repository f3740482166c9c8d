package playbook

import (
	"fmt"
	"time"
)

// Command is one time-bounded shell command of a playbook.
// Templates are executed through the shell, so the interpolation source
// must be trusted configuration, never attacker-influenced input.
type Command struct {
	Template string
	Timeout  time.Duration
	Required bool
}

// Playbook is a compiled per-service recovery recipe. Immutable once
// compiled; the store hands out copies only.
type Playbook struct {
	Service     string
	HealthCheck Command
	Steps       []Command
	Verify      Command
	MaxRetries  int
	Backoff     []time.Duration
}

// BackoffFor returns the delay after the given 1-based attempt, clamped
// to the last schedule entry once attempts exceed the schedule length.
func (p *Playbook) BackoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

// Defaults are file-level fallbacks applied to every service entry
type Defaults struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    []time.Duration
}

// file schema, camelCase to match the declarative format

type playbookFile struct {
	Version  string                  `yaml:"version"`
	Defaults defaultsSpec            `yaml:"defaults"`
	Services map[string]*serviceSpec `yaml:"services"`
}

type defaultsSpec struct {
	TimeoutMs  int   `yaml:"timeoutMs"`
	MaxRetries int   `yaml:"maxRetries"`
	BackoffMs  []int `yaml:"backoffMs"`
}

type serviceSpec struct {
	HealthCheck *commandSpec  `yaml:"healthCheck"`
	Recover     []commandSpec `yaml:"recover"`
	Verify      *commandSpec  `yaml:"verify"`
	MaxRetries  int           `yaml:"maxRetries"`
	BackoffMs   []int         `yaml:"backoffMs"`
}

type commandSpec struct {
	Command   string `yaml:"command"`
	TimeoutMs int    `yaml:"timeoutMs"`
	// Required defaults to true; only an explicit "required: false"
	// makes a step optional
	Required *bool `yaml:"required"`
}

const supportedVersion = "1.0"

func (f *playbookFile) validate() error {
	if f.Version != supportedVersion {
		return fmt.Errorf("unsupported playbook version %q (want %q)", f.Version, supportedVersion)
	}
	if len(f.Services) == 0 {
		return fmt.Errorf("playbook file defines no services")
	}
	for name, svc := range f.Services {
		if svc == nil {
			return fmt.Errorf("service %q: empty definition", name)
		}
		if svc.HealthCheck == nil || svc.HealthCheck.Command == "" {
			return fmt.Errorf("service %q: missing healthCheck command", name)
		}
		if len(svc.Recover) == 0 {
			return fmt.Errorf("service %q: missing recover steps", name)
		}
		for i, step := range svc.Recover {
			if step.Command == "" {
				return fmt.Errorf("service %q: recover step %d has no command", name, i+1)
			}
		}
		if svc.Verify == nil || svc.Verify.Command == "" {
			return fmt.Errorf("service %q: missing verify command", name)
		}
	}
	return nil
}

// compile resolves defaults and interpolation into immutable playbooks
func (f *playbookFile) compile(env EnvSource) (map[string]*Playbook, error) {
	defaults := Defaults{
		Timeout:    msToDuration(f.Defaults.TimeoutMs, 10*time.Second),
		MaxRetries: f.Defaults.MaxRetries,
		Backoff:    msSliceToDurations(f.Defaults.BackoffMs),
	}
	if defaults.MaxRetries <= 0 {
		defaults.MaxRetries = 3
	}
	if len(defaults.Backoff) == 0 {
		defaults.Backoff = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}
	}

	books := make(map[string]*Playbook, len(f.Services))
	for name, svc := range f.Services {
		pb := &Playbook{
			Service:    name,
			MaxRetries: svc.MaxRetries,
			Backoff:    msSliceToDurations(svc.BackoffMs),
		}
		if pb.MaxRetries <= 0 {
			pb.MaxRetries = defaults.MaxRetries
		}
		if len(pb.Backoff) == 0 {
			pb.Backoff = defaults.Backoff
		}

		var err error
		if pb.HealthCheck, err = svc.HealthCheck.compile(name, "healthCheck", defaults, env); err != nil {
			return nil, err
		}
		if pb.Verify, err = svc.Verify.compile(name, "verify", defaults, env); err != nil {
			return nil, err
		}
		for i := range svc.Recover {
			step, err := svc.Recover[i].compile(name, fmt.Sprintf("recover[%d]", i), defaults, env)
			if err != nil {
				return nil, err
			}
			pb.Steps = append(pb.Steps, step)
		}
		books[name] = pb
	}
	return books, nil
}

func (c *commandSpec) compile(service, field string, defaults Defaults, env EnvSource) (Command, error) {
	template, err := Interpolate(c.Command, env)
	if err != nil {
		return Command{}, fmt.Errorf("service %q: %s: %w", service, field, err)
	}
	required := true
	if c.Required != nil {
		required = *c.Required
	}
	return Command{
		Template: template,
		Timeout:  msToDuration(c.TimeoutMs, defaults.Timeout),
		Required: required,
	}, nil
}

func msToDuration(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func msSliceToDurations(ms []int) []time.Duration {
	if len(ms) == 0 {
		return nil
	}
	out := make([]time.Duration, len(ms))
	for i, v := range ms {
		out[i] = time.Duration(v) * time.Millisecond
	}
	return out
}
