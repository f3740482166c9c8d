package storage

import (
	"github.com/mendhq/mend/pkg/types"
)

// Store persists observability history: per-cycle stats and recovery
// outcomes. Nothing on the decision path ever reads it back; it exists
// so operators can answer "what did the controller do last night".
type Store interface {
	// Cycle history
	SaveCycleStats(stats *types.CycleStats) error
	ListCycleStats(limit int) ([]*types.CycleStats, error)

	// Recovery journal
	SaveRecovery(result *types.RecoveryResult) error
	ListRecoveries(limit int) ([]*types.RecoveryResult, error)

	// Utility
	Close() error
}
