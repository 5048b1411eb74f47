package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx is done.
// Runs never overlap: a slow run delays the next tick.
func Every(ctx context.Context, log *slog.Logger, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run(ctx, log, name, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run(ctx, log, name, task)
		}
	}
}

// Cron runs task at every tick of a five-field cron expression.
func Cron(ctx context.Context, log *slog.Logger, expr, name string, task Task) error {
	return cron(ctx, log, expr, name, task, time.Now, time.After)
}

func cron(ctx context.Context, log *slog.Logger, expr, name string, task Task,
	now func() time.Time, after func(time.Duration) <-chan time.Time) error {
	if !gronx.IsValid(expr) {
		return fmt.Errorf("scheduler %s: invalid cron expression %q", name, expr)
	}
	for {
		next, err := gronx.NextTickAfter(expr, now(), false)
		if err != nil {
			return fmt.Errorf("scheduler %s: next tick: %w", name, err)
		}
		log.Debug("next run scheduled", "task", name, "at", next.Format(time.RFC3339))
		select {
		case <-ctx.Done():
			return nil
		case <-after(time.Until(next)):
			run(ctx, log, name, task)
		}
	}
}

func run(ctx context.Context, log *slog.Logger, name string, task Task) {
	if err := task(ctx); err != nil {
		log.Error("scheduled run failed", "task", name, "err", err)
	}
}
