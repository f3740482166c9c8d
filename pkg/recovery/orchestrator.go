package recovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mendhq/mend/pkg/lock"
	"github.com/mendhq/mend/pkg/log"
	"github.com/mendhq/mend/pkg/metrics"
	"github.com/mendhq/mend/pkg/playbook"
	"github.com/mendhq/mend/pkg/types"
)

// PlaybookSource hands out compiled playbooks by service name.
// Satisfied by playbook.Store.
type PlaybookSource interface {
	Get(service string) (*playbook.Playbook, error)
}

// Orchestrator executes the health-check / remediate / backoff / verify
// protocol for one service at a time per resource. The coordination
// lock is owned here exclusively: nothing else acquires or releases
// recovery locks.
type Orchestrator struct {
	books  PlaybookSource
	locks  *lock.CoordinationLock
	runner Runner
	sleep  func(ctx context.Context, d time.Duration) // injectable for tests
	logger zerolog.Logger
}

// New creates a recovery orchestrator
func New(books PlaybookSource, locks *lock.CoordinationLock, runner Runner) *Orchestrator {
	if runner == nil {
		runner = NewShellRunner()
	}
	return &Orchestrator{
		books:  books,
		locks:  locks,
		runner: runner,
		sleep:  sleepCtx,
		logger: log.WithComponent("recovery"),
	}
}

// Recover runs the recovery protocol for a named service. It never
// blocks on lock contention: if another attempt is in flight the call
// returns skipped-locked immediately.
func (o *Orchestrator) Recover(ctx context.Context, service string) types.RecoveryResult {
	timer := metrics.NewTimer()
	result := o.recover(ctx, service)
	result.Service = service
	result.Duration = timer.Duration()
	result.FinishedAt = time.Now()

	metrics.RecoveriesTotal.WithLabelValues(string(result.Status)).Inc()
	metrics.RecoveryDuration.WithLabelValues(service).Observe(result.Duration.Seconds())

	o.logger.Info().
		Str("service", service).
		Str("status", string(result.Status)).
		Int("attempts", result.Attempts).
		Int("steps_run", result.StepsRun).
		Dur("duration", result.Duration).
		Msg("recovery finished")
	return result
}

func (o *Orchestrator) recover(ctx context.Context, service string) types.RecoveryResult {
	pb, err := o.books.Get(service)
	if err != nil {
		o.logger.Warn().Str("service", service).Msg("no playbook configured, skipping recovery")
		return types.RecoveryResult{Status: types.RecoveryNoPlaybook, LastError: err.Error()}
	}

	holder, ok := o.locks.TryAcquire(service)
	if !ok {
		// Another in-flight attempt already owns this resource
		return types.RecoveryResult{Status: types.RecoverySkippedLocked}
	}
	defer o.locks.Release(service, holder)

	// The service may have recovered on its own between detection and
	// action; restarting a healthy service would only cause churn
	if err := o.runner.Run(ctx, pb.HealthCheck); err == nil {
		return types.RecoveryResult{Status: types.RecoveryAlreadyHealthy}
	}

	result := types.RecoveryResult{}
	var lastErr error

	for attempt := 1; attempt <= pb.MaxRetries; attempt++ {
		result.Attempts = attempt

		aborted := false
		for i, step := range pb.Steps {
			result.StepsRun++
			err := o.runner.Run(ctx, step)
			if err == nil {
				metrics.RemediationSteps.WithLabelValues("ok").Inc()
				continue
			}
			if !step.Required {
				// Optional steps may fail without dooming the attempt
				metrics.RemediationSteps.WithLabelValues("skipped").Inc()
				o.logger.Warn().
					Str("service", service).
					Int("step", i+1).
					Err(err).
					Msg("optional remediation step failed, continuing")
				continue
			}
			metrics.RemediationSteps.WithLabelValues("failed").Inc()
			o.logger.Error().
				Str("service", service).
				Int("step", i+1).
				Int("attempt", attempt).
				Err(err).
				Msg("required remediation step failed, aborting attempt")
			lastErr = err
			aborted = true
			break
		}

		if !aborted {
			o.sleep(ctx, pb.BackoffFor(attempt))

			if err := o.runner.Run(ctx, pb.Verify); err == nil {
				result.Status = types.RecoveryRecovered
				return result
			} else {
				lastErr = err
			}
		} else {
			// Give the environment the same settling time before the
			// next attempt
			o.sleep(ctx, pb.BackoffFor(attempt))
		}

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
	}

	result.Status = types.RecoveryFailed
	if lastErr != nil {
		result.LastError = lastErr.Error()
	}
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
