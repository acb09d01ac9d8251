// Package scheduler drives the sync engine on a fixed cadence with a
// shortened retry wait after failures.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/magicorntech/gcp-secret-manager/internal/health"
)

// Engine is the sync entry point the scheduler drives.
type Engine interface {
	RunOnce(ctx context.Context) health.SyncResult
}

// Scheduler runs sync cycles every interval, shortening the wait to backoff
// after a failed cycle. It shares the engine's single-flight guard with
// on-demand triggers, so it never blocks on them and never doubles a cycle.
type Scheduler struct {
	engine   Engine
	interval time.Duration
	backoff  time.Duration
	logger   *zap.Logger
}

// New builds a scheduler. interval is the cadence after a success, backoff
// the wait after a failure.
func New(engine Engine, interval, backoff time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		backoff:  backoff,
		logger:   logger,
	}
}

// Run loops until ctx is cancelled. The first cycle fires immediately so
// health state is known right after startup. No cycle failure stops the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("failure_backoff", s.backoff))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
		}

		result := s.engine.RunOnce(ctx)

		next := s.NextDelay(result.Succeeded())
		if !result.Succeeded() {
			s.logger.Warn("sync cycle failed, retrying on shortened backoff",
				zap.Duration("retry_in", next))
		}
		timer.Reset(next)
	}
}

// NextDelay returns the wait before the next cycle given the last outcome.
func (s *Scheduler) NextDelay(succeeded bool) time.Duration {
	if succeeded {
		return s.interval
	}
	return s.backoff
}
