package playbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mendhq/mend/pkg/log"
)

// ErrNotFound is returned when no playbook exists for a service name
var ErrNotFound = errors.New("no playbook for service")

// Store loads and owns recovery playbooks. Playbooks are read-only to
// every other component; the set changes only through Reload (explicit
// or fsnotify-driven).
type Store struct {
	path string
	env  EnvSource

	mu    sync.RWMutex
	books map[string]*Playbook

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	onReload func(count int)

	logger zerolog.Logger
}

// NewStore loads the playbook file at path. A nil env uses the process
// environment.
func NewStore(path string, env EnvSource) (*Store, error) {
	s := &Store{
		path:   path,
		env:    env,
		stopCh: make(chan struct{}),
		logger: log.WithComponent("playbooks"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the playbook file. On any parse or validation error
// the previously loaded set is kept untouched.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read playbook file: %w", err)
	}

	books, err := Parse(data, s.env)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.books = books
	s.mu.Unlock()

	s.logger.Info().Int("services", len(books)).Str("file", s.path).Msg("playbooks loaded")
	return nil
}

// Parse parses and compiles playbook file contents
func Parse(data []byte, env EnvSource) (map[string]*Playbook, error) {
	var file playbookFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse playbook YAML: %w", err)
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return file.compile(env)
}

// Get returns the playbook for a service, or ErrNotFound
func (s *Store) Get(service string) (*Playbook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pb, ok := s.books[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	return pb, nil
}

// Services returns the names of all loaded playbooks
func (s *Store) Services() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.books))
	for name := range s.books {
		names = append(names, name)
	}
	return names
}

// Len returns the number of loaded playbooks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// OnReload registers a hook invoked after each successful watch-driven
// reload. Must be called before Watch.
func (s *Store) OnReload(fn func(count int)) {
	s.onReload = fn
}

// Watch starts an fsnotify watcher that reloads the store when the
// playbook file changes. Reload failures keep the old set and are
// logged; they never propagate to the control loop.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: editors replace files, which drops a watch
	// on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = watcher

	go s.watchLoop()
	return nil
}

// Close stops the watcher if one is running
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.watcher != nil {
			s.watcher.Close()
		}
	})
}

func (s *Store) watchLoop() {
	// Debounce: editors emit bursts of events per save
	var pending *time.Timer
	target := filepath.Clean(s.path)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(250*time.Millisecond, s.reloadFromWatch)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("playbook watcher error")

		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) reloadFromWatch() {
	if err := s.Reload(); err != nil {
		s.logger.Error().Err(err).Msg("playbook reload failed, keeping previous set")
		return
	}
	if s.onReload != nil {
		s.onReload(s.Len())
	}
}
