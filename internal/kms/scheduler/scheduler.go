// Package scheduler runs the periodic key maintenance loop.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
)

// Config holds scheduler configuration
type Config struct {
	// Interval between maintenance sweeps.
	Interval time.Duration
	// GracePeriod a retired key stays readable before its material is
	// destroyed.
	GracePeriod time.Duration
	// BatchSize caps how many keys one sweep touches per category.
	BatchSize uint
	// SweepRate bounds sweeps per second. Manual triggers and a short
	// interval share the same budget so the backend is never hammered.
	SweepRate float64
}

// Sweeper runs one maintenance pass over the key population.
type Sweeper interface {
	Sweep(ctx context.Context, gracePeriod time.Duration, limit uint) (usecase.SweepResult, error)
}

// Scheduler triggers maintenance sweeps on a fixed interval.
type Scheduler struct {
	config  Config
	sweeper Sweeper
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewScheduler creates a new Scheduler
func NewScheduler(config Config, sweeper Sweeper, logger *slog.Logger) *Scheduler {
	sweepRate := config.SweepRate
	if sweepRate <= 0 {
		sweepRate = 1.0
	}
	return &Scheduler{
		config:  config,
		sweeper: sweeper,
		limiter: rate.NewLimiter(rate.Limit(sweepRate), 1),
		logger:  logger,
	}
}

// Start runs the maintenance loop until the context is canceled. The first
// sweep runs immediately so a restart does not delay overdue rotations by a
// full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting key maintenance scheduler",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("grace_period", s.config.GracePeriod),
		slog.Uint64("batch_size", uint64(s.config.BatchSize)),
	)

	if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("maintenance sweep failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping key maintenance scheduler")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("maintenance sweep failed", slog.Any("error", err))
			}
		}
	}
}

// RunOnce executes a single rate-limited maintenance sweep.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	result, err := s.sweeper.Sweep(ctx, s.config.GracePeriod, s.config.BatchSize)
	if err != nil {
		return err
	}

	if result.Rotated+result.Expired+result.Destroyed+result.Failed > 0 {
		s.logger.Info("maintenance sweep finished",
			slog.Int("rotated", result.Rotated),
			slog.Int("expired", result.Expired),
			slog.Int("destroyed", result.Destroyed),
			slog.Int("failed", result.Failed),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}
