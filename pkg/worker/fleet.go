package worker

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mendhq/mend/pkg/log"
)

const supportedVersion = "1.0"

// Spec declares one worker: how to probe it and how to act on it.
// Commands run through the shell so operators can use pipelines.
type Spec struct {
	ID               string
	Role             string
	DependsOn        []string
	CheckCommand     string
	RestartCommand   string
	RebalanceCommand string
}

// Fleet is the set of declared workers. It probes them for health
// snapshots and executes healing actions against them.
type Fleet struct {
	mu    sync.RWMutex
	specs map[string]Spec
	order []string

	Shell         string
	ProbeTimeout  time.Duration
	ActionTimeout time.Duration

	logger zerolog.Logger
}

type fleetFile struct {
	Version string       `yaml:"version"`
	Workers []workerSpec `yaml:"workers"`
}

type workerSpec struct {
	ID               string   `yaml:"id"`
	Role             string   `yaml:"role"`
	DependsOn        []string `yaml:"dependsOn"`
	CheckCommand     string   `yaml:"checkCommand"`
	RestartCommand   string   `yaml:"restartCommand"`
	RebalanceCommand string   `yaml:"rebalanceCommand"`
}

// NewFleet builds a fleet from specs
func NewFleet(specs []Spec) (*Fleet, error) {
	f := &Fleet{
		specs:         make(map[string]Spec, len(specs)),
		Shell:         "/bin/sh",
		ProbeTimeout:  5 * time.Second,
		ActionTimeout: 30 * time.Second,
		logger:        log.WithComponent("fleet"),
	}
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("worker with empty id")
		}
		if spec.CheckCommand == "" {
			return nil, fmt.Errorf("worker %s: checkCommand is required", spec.ID)
		}
		if _, exists := f.specs[spec.ID]; exists {
			return nil, fmt.Errorf("duplicate worker id %s", spec.ID)
		}
		f.specs[spec.ID] = spec
		f.order = append(f.order, spec.ID)
	}
	return f, nil
}

// LoadFleet reads and parses a fleet file
func LoadFleet(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet file: %w", err)
	}
	return ParseFleet(data)
}

// ParseFleet parses fleet YAML
func ParseFleet(data []byte) (*Fleet, error) {
	var file fleetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fleet file: %w", err)
	}
	if file.Version != supportedVersion {
		return nil, fmt.Errorf("unsupported fleet file version %q (want %s)", file.Version, supportedVersion)
	}

	specs := make([]Spec, 0, len(file.Workers))
	for _, w := range file.Workers {
		specs = append(specs, Spec{
			ID:               w.ID,
			Role:             w.Role,
			DependsOn:        w.DependsOn,
			CheckCommand:     w.CheckCommand,
			RestartCommand:   w.RestartCommand,
			RebalanceCommand: w.RebalanceCommand,
		})
	}
	return NewFleet(specs)
}

// Len returns the number of declared workers
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}

func (f *Fleet) get(id string) (Spec, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	spec, ok := f.specs[id]
	return spec, ok
}
