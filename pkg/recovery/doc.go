/*
Package recovery executes playbook-driven recovery of infrastructure
resources under a per-resource coordination lock.

The orchestrator owns the full recovery protocol for one service. Given
a playbook from the store, a single Recover call runs:

	┌─────────────────────────────────────────────┐
	│             Recover(ctx, service)           │
	└──────┬──────────────────────────────────────┘
	       │
	       ▼
	 lookup playbook ──── not found ──▶ no-playbook
	       │
	       ▼
	 acquire lock ──────── held ──────▶ skipped-locked
	       │
	       ▼
	 health check ──────── healthy ───▶ already-healthy
	       │
	       ▼
	 for attempt 1..maxRetries:
	     run steps in order
	     sleep backoff[attempt]
	     verify ────────── passes ────▶ recovered
	       │
	       ▼
	 retries exhausted ───────────────▶ failed

# Lock Semantics

The lock is acquired once per Recover call and always released when the
call returns, whatever the outcome. A caller that finds the lock held
gets skipped-locked immediately; the orchestrator never waits for a
lock. Concurrent recoveries of different services proceed in parallel.

# Step Execution

Each remediation step runs through the shell with its own timeout. A
timed-out command counts as a failed command. Optional steps that fail
are logged and skipped; a required step failure aborts the current
attempt, and the orchestrator sleeps the attempt's backoff before
retrying from the first step. The backoff schedule clamps to its last
entry when attempts outnumber entries.

# Usage

	books, _ := playbook.NewStore("playbooks.yaml", playbook.OSEnv)
	locks := lock.New(lock.DefaultTTL)
	orch := recovery.New(books, locks, nil) // nil runner = shell runner

	result := orch.Recover(ctx, "postgres")
	switch result.Status {
	case types.RecoveryRecovered:
		// back to healthy after result.Attempts attempts
	case types.RecoverySkippedLocked:
		// another caller is already recovering postgres
	case types.RecoveryFailed:
		// gave up; result.LastError has the final failure
	}

The Runner interface abstracts command execution so tests can script
step outcomes without spawning processes.

# See Also

  - pkg/playbook - playbook file format and store
  - pkg/lock - coordination lock semantics
  - pkg/router - routes resource actions into this package
*/
package recovery
