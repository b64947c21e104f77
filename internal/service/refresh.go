package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher rebuilds summary tables on a cron schedule so they keep
// tracking the main table as new data is loaded.
type Refresher struct {
	cron     *cron.Cron
	runner   *Runner
	schedule string
	logger   *slog.Logger
}

// NewRefresher creates a Refresher. An empty schedule disables it.
func NewRefresher(runner *Runner, schedule string, logger *slog.Logger) *Refresher {
	return &Refresher{
		cron:     cron.New(),
		runner:   runner,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the refresh job and starts the scheduler.
func (f *Refresher) Start() error {
	if f.schedule == "" {
		return nil
	}

	_, err := f.cron.AddFunc(f.schedule, func() {
		ctx := context.Background()
		failures, err := f.runner.Refresh(ctx)
		if err != nil {
			f.logger.Warn("scheduled refresh failed", "error", err)
			return
		}
		for _, failure := range failures {
			f.logger.Warn("summary rebuild failed", "table", failure.Table, "error", failure.Error)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", f.schedule, err)
	}

	f.cron.Start()
	f.logger.Info("refresh scheduler started", "schedule", f.schedule)
	return nil
}

// Entries returns the number of scheduled jobs.
func (f *Refresher) Entries() int {
	return len(f.cron.Entries())
}

// Stop gracefully stops the scheduler.
func (f *Refresher) Stop() {
	f.cron.Stop()
	f.logger.Info("refresh scheduler stopped")
}
