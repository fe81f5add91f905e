// Package worker runs the server's background loops: the sale lifecycle
// scheduler and the order notification consumer.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dukerupert/atelier/internal"
	"github.com/dukerupert/atelier/internal/lock"
	"github.com/dukerupert/atelier/internal/service"
	"github.com/dukerupert/atelier/internal/telemetry"
)

const lifecycleLockKey = "sale-lifecycle"

// ErrTickInProgress is returned by Tick when another tick, in this process
// or another instance, is still running.
var ErrTickInProgress = errors.New("sale lifecycle tick already in progress")

// LifecycleRunner performs one lifecycle pass. service.SaleService
// satisfies it.
type LifecycleRunner interface {
	RunLifecycle(ctx context.Context) (service.LifecycleResult, error)
}

// Scheduler ticks the sale lifecycle once on start and then every
// Interval. Ticks never overlap.
type Scheduler struct {
	runner  LifecycleRunner
	locker  lock.Locker // optional, shared across instances
	config  internal.SchedulerConfig
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics

	running sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. locker and metrics may be nil.
func NewScheduler(runner LifecycleRunner, locker lock.Locker, config internal.SchedulerConfig, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 5 * time.Minute
	}
	return &Scheduler{
		runner:  runner,
		locker:  locker,
		config:  config,
		logger:  logger.With("component", "sale_scheduler"),
		metrics: metrics,
	}
}

// Start launches the loop in the background. Calling Start on a running
// scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("sale scheduler starting", "interval", s.config.Interval)
	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("sale scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer telemetry.RecoverWithSentry()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil && !errors.Is(err, ErrTickInProgress) && ctx.Err() == nil {
			s.logger.Error("sale lifecycle tick failed", "error", err)
			telemetry.CaptureError(err, map[string]interface{}{"component": "sale_scheduler"})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one lifecycle pass now unless one is already running.
func (s *Scheduler) Tick(ctx context.Context) (service.LifecycleResult, error) {
	if !s.running.TryLock() {
		return service.LifecycleResult{}, ErrTickInProgress
	}
	defer s.running.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, lifecycleLockKey, s.config.LockTTL)
		if err != nil {
			s.metrics.RecordLifecycleRun("lock_error", 0)
			return service.LifecycleResult{}, err
		}
		if !ok {
			s.logger.Debug("sale lifecycle held by another instance")
			s.metrics.RecordLifecycleRun("skipped", 0)
			return service.LifecycleResult{}, ErrTickInProgress
		}
		defer release()
	}

	ctx, finish := telemetry.StartSpan(ctx, "sale.lifecycle", "activate and expire sales")
	defer finish()

	start := time.Now()
	result, err := s.runner.RunLifecycle(ctx)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(result.Failed) > 0:
		outcome = "partial"
	}
	s.metrics.RecordLifecycleRun(outcome, elapsed.Seconds())

	if err != nil {
		return result, err
	}

	if result.Transitions() > 0 || len(result.Failed) > 0 || len(result.MissingProducts) > 0 {
		s.logger.Info("sale lifecycle tick",
			"activated", len(result.Activated),
			"expired", len(result.Expired),
			"failed", len(result.Failed),
			"missing_products", len(result.MissingProducts),
			"duration", elapsed,
		)
	}
	if len(result.Failed) > 0 {
		ids := make([]string, 0, len(result.Failed))
		for _, f := range result.Failed {
			ids = append(ids, f.SaleID)
		}
		telemetry.CaptureMessage("sale lifecycle transitions failed", sentry.LevelWarning, map[string]interface{}{
			"sale_ids": ids,
		})
	}
	return result, nil
}
