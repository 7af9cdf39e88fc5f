package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Config holds configuration for the background job scheduler.
type Config struct {
	// Enabled toggles all background jobs.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// SyncIntervalMinutes is the interval between full platform syncs.
	SyncIntervalMinutes int `mapstructure:"sync_interval_minutes" default:"60"`
	// CleanupIntervalMinutes is the interval between orphan-score sweeps.
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes" default:"15"`
	// ArchiveTime is the daily UTC time (HH:MM) for audit-event archival.
	ArchiveTime string `mapstructure:"archive_time" default:"03:00"`
}

// Service runs recurring background jobs on a UTC gocron scheduler.
type Service struct {
	scheduler *gocron.Scheduler
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler service.
func New(logger *zap.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Every registers a job running at a fixed interval. Job failures are logged,
// never fatal; the job stays scheduled.
func (s *Service) Every(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	_, err := s.scheduler.Every(interval).Do(func() {
		s.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Daily registers a job running once per day at the given UTC time (HH:MM).
func (s *Service) Daily(name, at string, fn func(ctx context.Context) error) error {
	_, err := s.scheduler.Every(1).Day().At(at).Do(func() {
		s.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

func (s *Service) run(name string, fn func(ctx context.Context) error) {
	start := time.Now()
	s.logger.Info("Scheduled job started", zap.String("job", name))
	if err := fn(s.ctx); err != nil {
		s.logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("Scheduled job completed", zap.String("job", name), zap.Duration("duration", time.Since(start)))
}

// Start begins running the scheduler asynchronously.
func (s *Service) Start() {
	s.scheduler.StartAsync()
}

// Stop halts all scheduled jobs and cancels any in-flight run.
func (s *Service) Stop() {
	s.scheduler.Stop()
	s.cancel()
}
