package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/diagnosis/condo-bookings/pkg/logger"
)

type StaleSweeper interface {
	CancelStalePending(ctx context.Context) (int, error)
}

// KeyCleaner drops expired idempotency records. Only the Postgres fallback
// needs it; Redis expires keys on its own.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type Config struct {
	SweepInterval   time.Duration
	CleanupInterval time.Duration
}

// Scheduler runs the periodic maintenance jobs of the booking service.
type Scheduler struct {
	cron    gocron.Scheduler
	sweeper StaleSweeper
	cleaner KeyCleaner
	cfg     Config
}

func New(sweeper StaleSweeper, cleaner KeyCleaner, cfg Config) (*Scheduler, error) {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{cron: cron, sweeper: sweeper, cleaner: cleaner, cfg: cfg}, nil
}

// Run registers the jobs, starts them and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.sweeper != nil {
		if _, err := s.cron.NewJob(
			gocron.DurationJob(s.cfg.SweepInterval),
			gocron.NewTask(s.sweepStale, ctx),
			gocron.WithName("cancel-stale-pending"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			return fmt.Errorf("schedule stale sweep: %w", err)
		}
	}
	if s.cleaner != nil {
		if _, err := s.cron.NewJob(
			gocron.DurationJob(s.cfg.CleanupInterval),
			gocron.NewTask(s.cleanupKeys, ctx),
			gocron.WithName("cleanup-idempotency-keys"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return fmt.Errorf("schedule key cleanup: %w", err)
		}
	}

	s.cron.Start()
	logger.Info("Scheduler started", "jobs", len(s.cron.Jobs()))
	<-ctx.Done()

	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) sweepStale(ctx context.Context) {
	n, err := s.sweeper.CancelStalePending(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Stale booking sweep failed", "error", err)
		return
	}
	if n > 0 {
		logger.InfoContext(ctx, "Cancelled stale pending bookings", "count", n)
	}
}

func (s *Scheduler) cleanupKeys(ctx context.Context) {
	n, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Idempotency key cleanup failed", "error", err)
		return
	}
	logger.DebugContext(ctx, "Expired idempotency keys removed", "count", n)
}
