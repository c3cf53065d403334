// Package schedule re-runs calendar generation on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "lunarcal/internal/log"
)

// Job is one scheduled run. ctx is cancelled on shutdown.
type Job func(ctx context.Context)

type Scheduler struct {
	cron   *cron.Cron
	logger *appLog.Logger
}

// New parses spec (standard five-field syntax or descriptors such as
// "@daily" and "@every 6h") and registers job. Overlapping runs are skipped.
func New(ctx context.Context, spec string, job Job, logger *appLog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = appLog.NewNop()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Validate reports whether spec is accepted by New.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

// Next returns the time of the next scheduled run.
func (s *Scheduler) Next() string {
	entries := s.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return ""
	}
	return entries[0].Next.Format(time.RFC3339)
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("scheduler started", "next", s.Next())
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	l *appLog.Logger
}

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug("cron: "+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error("cron: "+msg, err, kv...)
}
