package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/mendhq/mend/pkg/types"
)

var (
	// Bucket names
	bucketCycles     = []byte("cycles")
	bucketRecoveries = []byte("recoveries")
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "mend.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketCycles,
			bucketRecoveries,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveCycleStats records one completed cycle, keyed by cycle number so
// history reads back in order
func (s *BoltStore) SaveCycleStats(stats *types.CycleStats) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCycles)
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return b.Put([]byte(fmt.Sprintf("%020d", stats.Cycle)), data)
	})
}

// ListCycleStats returns up to limit most recent cycles, newest first
func (s *BoltStore) ListCycleStats(limit int) ([]*types.CycleStats, error) {
	var out []*types.CycleStats
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCycles).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var stats types.CycleStats
			if err := json.Unmarshal(v, &stats); err != nil {
				return err
			}
			out = append(out, &stats)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// SaveRecovery appends one recovery outcome to the journal
func (s *BoltStore) SaveRecovery(result *types.RecoveryResult) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecoveries)
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		// Timestamp-prefixed key keeps the journal chronological;
		// the uuid suffix keeps same-nanosecond entries distinct
		key := fmt.Sprintf("%020d-%s", result.FinishedAt.UnixNano(), uuid.New().String())
		return b.Put([]byte(key), data)
	})
}

// ListRecoveries returns up to limit most recent outcomes, newest first
func (s *BoltStore) ListRecoveries(limit int) ([]*types.RecoveryResult, error) {
	var out []*types.RecoveryResult
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRecoveries).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var result types.RecoveryResult
			if err := json.Unmarshal(v, &result); err != nil {
				return err
			}
			out = append(out, &result)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}
