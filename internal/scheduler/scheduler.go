package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Purger drops expired entries and reports how many were removed.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Scheduler periodically purges expired cached API responses.
type Scheduler struct {
	scheduler *gocron.Scheduler
	purger    Purger
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(purger Purger, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		purger:    purger,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the purge job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.purger == nil {
		slog.Info("scheduler: no cache configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce purges the cache a single time.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.purger.Purge(ctx)
	if err != nil {
		slog.Warn("scheduler: cache purge failed", "error", err)
		return
	}
	slog.Debug("scheduler: cache purge completed", "removed", n)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
