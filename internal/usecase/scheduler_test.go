package usecase

import (
	"context"
	"testing"
	"time"
)

type manualDriver struct {
	job func(time.Time)
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(_ context.Context) error {
	d.job = nil
	return nil
}

func (d *manualDriver) fire(t time.Time) {
	if d.job != nil {
		d.job(t)
	}
}

func newIdlePipeline(t *testing.T, runState *fakeRunState) *Pipeline {
	t.Helper()
	return NewPipeline(PipelineDeps{
		Store:    newTestStore(t),
		RunState: runState,
		Source:   &fakeSource{},
	})
}

func TestSchedulerSkipsFreshRuns(t *testing.T) {
	t.Parallel()

	runState := &fakeRunState{}
	now := time.Now().UTC()
	if err := runState.SetLastRun(now.Add(-time.Minute)); err != nil {
		t.Fatalf("seed run state: %v", err)
	}

	driver := &manualDriver{}
	scheduler := NewScheduler(driver, newIdlePipeline(t, runState), runState, 15*time.Minute, nil)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	driver.fire(now)
	if got := runState.LastRun(); !got.Equal(now.Add(-time.Minute)) {
		t.Fatalf("a fresh run state must suppress the trigger, got restamp to %v", got)
	}
}

func TestSchedulerRunsWhenStale(t *testing.T) {
	t.Parallel()

	runState := &fakeRunState{}
	now := time.Now().UTC()
	stale := now.Add(-time.Hour)
	if err := runState.SetLastRun(stale); err != nil {
		t.Fatalf("seed run state: %v", err)
	}

	driver := &manualDriver{}
	scheduler := NewScheduler(driver, newIdlePipeline(t, runState), runState, 15*time.Minute, nil)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	driver.fire(now)
	if got := runState.LastRun(); !got.After(stale) {
		t.Fatalf("a stale run state must let the pipeline run and restamp, got %v", got)
	}
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	scheduler := NewScheduler(nil, nil, nil, time.Minute, nil)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := scheduler.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
