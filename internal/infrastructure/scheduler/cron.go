package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"GoodNewsFeed/internal/ports"
)

// CronScheduler drives recurring jobs through robfig/cron. The job also
// fires once immediately on start so a fresh process does not wait a full
// interval for its first run. The application owns the lifecycle: it
// calls Stop on shutdown, so no context watcher runs here.
type CronScheduler struct {
	interval time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler firing every interval.
func NewCronScheduler(interval time.Duration) *CronScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CronScheduler{interval: interval}
}

// Start registers the job and launches the cron loop.
func (c *CronScheduler) Start(_ context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	runner := cron.New()
	spec := fmt.Sprintf("@every %s", c.interval)
	if _, err := runner.AddFunc(spec, func() { job(time.Now().UTC()) }); err != nil {
		return fmt.Errorf("register cron job %q: %w", spec, err)
	}

	go job(time.Now().UTC())
	runner.Start()
	c.cron = runner

	return nil
}

// Stop halts the cron loop, waiting for a running job to return. Safe to
// call more than once.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
