// Package feedreaper runs the idle notification feed sweep on a cron schedule.
package feedreaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ticketdesk/admin-console/internal/observability/metrics"
	"github.com/ticketdesk/admin-console/internal/observability/statsd"
)

// DefaultSchedule sweeps once a minute.
const DefaultSchedule = "@every 1m"

// IdleReaper stops feeds that nobody has looked at recently.
type IdleReaper interface {
	ReapIdle(ctx context.Context, now time.Time) int
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Reaper   IdleReaper
	Schedule string // cron spec or descriptor; DefaultSchedule when empty
	Logger   *slog.Logger
	Metrics  statsd.Sink
	Now      func() time.Time
}

// Runner drives IdleReaper from a cron schedule.
type Runner struct {
	reaper   IdleReaper
	schedule cron.Schedule
	spec     string
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time
}

// NewRunner validates opts and parses the schedule.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Reaper == nil {
		return nil, errors.New("idle reaper is required")
	}
	spec := opts.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse reap schedule %q: %w", spec, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		reaper:   opts.Reaper,
		schedule: sched,
		spec:     spec,
		logger:   logger.With("component", "feed_reaper"),
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// Next reports when the sweep after t is due.
func (r *Runner) Next(t time.Time) time.Time { return r.schedule.Next(t) }

// Run schedules the sweep and blocks until ctx is cancelled. A sweep still
// running at shutdown is allowed to finish.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLogger(cronLogger{r.logger}),
		cron.WithChain(cron.Recover(cronLogger{r.logger}), cron.SkipIfStillRunning(cronLogger{r.logger})),
	)
	c.Schedule(r.schedule, cron.FuncJob(func() { r.RunOnce(ctx) }))

	r.logger.InfoContext(ctx, "starting feed reaper", "schedule", r.spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.InfoContext(ctx, "feed reaper stopped")

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// RunOnce performs a single sweep and returns the number of feeds stopped.
func (r *Runner) RunOnce(ctx context.Context) int {
	start := time.Now()
	n := r.reaper.ReapIdle(ctx, r.now())
	metrics.EmitFeedsReaped(r.metrics, n, time.Since(start))
	if n > 0 {
		r.logger.InfoContext(ctx, "reaped idle feeds", "count", n)
	}
	return n
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
