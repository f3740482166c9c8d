package lock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry represents a held coordination lock
type Entry struct {
	ResourceKey string
	HolderID    string
	AcquiredAt  time.Time
	TTL         time.Duration
}

// Expired reports whether the entry's TTL has elapsed at the given time
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.AcquiredAt) >= e.TTL
}

// CoordinationLock is a TTL-bounded mutex keyed by resource name.
// It guarantees at most one live (non-expired) holder per key.
// Expiry is lazy: a crashed holder's lock is reclaimed by the next
// acquisition attempt after the TTL elapses, there is no sweeper.
type CoordinationLock struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	defaultTTL time.Duration
	now        func() time.Time // injectable for tests
}

// DefaultTTL covers the slowest expected recovery (health check plus all
// retries and backoffs of a typical playbook)
const DefaultTTL = 10 * time.Minute

// New creates a coordination lock with the given default TTL.
// A zero ttl uses DefaultTTL.
func New(ttl time.Duration) *CoordinationLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CoordinationLock{
		entries:    make(map[string]*Entry),
		defaultTTL: ttl,
		now:        time.Now,
	}
}

// TryAcquire attempts to acquire the lock for key. It never blocks: on
// contention it returns ok=false immediately. On success it returns a
// holder token that must be passed to Release.
func (l *CoordinationLock) TryAcquire(key string) (holderID string, ok bool) {
	return l.TryAcquireTTL(key, l.defaultTTL)
}

// TryAcquireTTL is TryAcquire with a per-call TTL override
func (l *CoordinationLock) TryAcquireTTL(key string, ttl time.Duration) (string, bool) {
	if ttl <= 0 {
		ttl = l.defaultTTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if existing, held := l.entries[key]; held && !existing.Expired(now) {
		return "", false
	}

	entry := &Entry{
		ResourceKey: key,
		HolderID:    uuid.New().String(),
		AcquiredAt:  now,
		TTL:         ttl,
	}
	l.entries[key] = entry
	return entry.HolderID, true
}

// Release releases the lock for key if holderID still holds it.
// Releasing an expired or stolen lock is a no-op, so a slow holder
// cannot free a lock that was reclaimed and re-acquired by someone else.
func (l *CoordinationLock) Release(key, holderID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.entries[key]
	if !held || entry.HolderID != holderID {
		return false
	}
	delete(l.entries, key)
	return true
}

// Held reports whether key is currently locked by a live holder
func (l *CoordinationLock) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.entries[key]
	return held && !entry.Expired(l.now())
}
