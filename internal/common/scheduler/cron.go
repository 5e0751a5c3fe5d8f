// internal/common/scheduler/cron.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"collections-reminders/internal/common/logger"
	"collections-reminders/internal/common/metrics"

	"github.com/robfig/cron/v3"
)

// Job is invoked on every tick with a context cancelled by Stop.
type Job func(ctx context.Context) error

// Scheduler runs one job on a cron schedule. Overlapping ticks are skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    Job
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(spec string, loc *time.Location, job Job, log logger.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, spec: spec, job: job, logger: log, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}

	metrics.SchedulerRunning.Set(1)
	defer metrics.SchedulerRunning.Set(0)

	start := time.Now()
	if err := s.job(s.ctx); err != nil {
		s.logger.Error("scheduled job failed", map[string]interface{}{
			"schedule":   s.spec,
			"durationMs": time.Since(start).Milliseconds(),
			"error":      err.Error(),
		})
		return
	}
	s.logger.Info("scheduled job completed", map[string]interface{}{
		"schedule":   s.spec,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

// Next returns the next activation time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().In(s.cron.Location()))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", map[string]interface{}{
		"schedule": s.spec,
		"next":     s.Next().Format(time.RFC3339),
	})
}

// Stop cancels a running job and waits for it to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
