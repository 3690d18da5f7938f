package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the refresher on a cron schedule.
type Scheduler struct {
	refresher *Refresher
	cron      *cron.Cron
	timeout   time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler. Each run is bounded by timeout.
func NewScheduler(refresher *Refresher, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		cron:      cron.New(),
		timeout:   timeout,
		logger:    logger,
	}
}

// Start registers the refresh on a five-field cron schedule and starts it.
// An empty schedule leaves the scheduler idle.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		s.logger.Info("refresh scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("refresh scheduler started", "schedule", schedule)
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("refresh scheduler stopped")
}

// RunNow triggers an immediate refresh of one merchant in the background.
func (s *Scheduler) RunNow(merchantID string) {
	s.logger.Info("triggering immediate refresh", "merchant_id", merchantID)
	go func() {
		ctx, cancel := s.runContext()
		defer cancel()

		stats, err := s.refresher.RunOnce(ctx, merchantID)
		if err != nil {
			s.logger.Error("refresh failed", "merchant_id", merchantID, "error", err)
			return
		}
		s.logger.Info("refresh completed",
			"merchant_id", merchantID,
			"processed", stats.Processed,
			"failed", stats.Failed,
			"duration", stats.Duration)
	}()
}

func (s *Scheduler) run() {
	ctx, cancel := s.runContext()
	defer cancel()

	s.logger.Info("starting scheduled refresh")

	stats, err := s.refresher.RunAll(ctx)
	if err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
		return
	}

	s.logger.Info("scheduled refresh completed",
		"merchants", stats.Merchants,
		"processed", stats.Processed,
		"failed", stats.Failed,
		"duration", stats.Duration)
}

func (s *Scheduler) runContext() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.timeout)
}
