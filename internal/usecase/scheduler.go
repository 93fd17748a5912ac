package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"GoodNewsFeed/internal/ports"
)

// Scheduler binds the cron driver to the pipeline. The trigger fires
// often; a run only starts when the last stamped run is older than the
// staleness threshold, and a run-in-progress flag prevents overlap.
type Scheduler struct {
	driver    ports.Scheduler
	pipeline  *Pipeline
	runState  ports.RunState
	staleness time.Duration
	running   atomic.Bool
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring pipeline runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, runState ports.RunState, staleness time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:    driver,
		pipeline:  pipeline,
		runState:  runState,
		staleness: staleness,
		logger:    logger,
	}
}

// Start registers the staleness-gated job with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if s.runState != nil && trigger.Sub(s.runState.LastRun()) < s.staleness {
			return
		}
		if !s.running.CompareAndSwap(false, true) {
			s.debug("pipeline already running, trigger skipped")
			return
		}
		defer s.running.Store(false)

		if err := s.pipeline.RunOnce(ctx); err != nil {
			s.error("pipeline run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Scheduler) error(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
