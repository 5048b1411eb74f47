// Package consumer drains the work queue within a time budget.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"tender-writer/internal/batch"
	"tender-writer/internal/metrics"
	"tender-writer/internal/queue"
)

type Receiver interface {
	Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error)
}

type BatchHandler interface {
	ProcessBatch(ctx context.Context, msgs []queue.Message) batch.Report
}

type StopReason string

const (
	StopQueueEmpty StopReason = "queue_empty"
	StopBudget     StopReason = "budget_exhausted"
	StopCancelled  StopReason = "cancelled"
	StopError      StopReason = "receive_error"
)

type Summary struct {
	Polls        int        `json:"polls"`
	Received     int        `json:"received"`
	Persisted    int        `json:"persisted"`
	DeadLettered int        `json:"dead_lettered"`
	Retained     int        `json:"retained"`
	Stop         StopReason `json:"stop"`
	Started      time.Time  `json:"started"`
	Finished     time.Time  `json:"finished"`
}

func (s *Summary) add(rep batch.Report) {
	s.Received += len(rep.Results)
	s.Persisted += rep.Count(batch.Persisted)
	s.DeadLettered += rep.Count(batch.DeadLettered)
	s.Retained += rep.Count(batch.Retained)
}

type Consumer struct {
	Queue   Receiver
	Handler BatchHandler

	MaxBatch   int
	Wait       time.Duration
	Visibility time.Duration
	// SafetyMargin is the least budget that must remain before a poll.
	SafetyMargin time.Duration
	// Limiter paces polls; nil means unthrottled.
	Limiter *rate.Limiter

	Log     *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Drain polls until the queue is empty or the budget in ctx's deadline runs
// low. The budget is checked before each poll, never inside a batch.
// Without a deadline only an empty poll or cancellation stops it.
func (c *Consumer) Drain(ctx context.Context) (Summary, error) {
	sum := Summary{Started: c.now()}
	finish := func(r StopReason) Summary {
		sum.Stop = r
		sum.Finished = c.now()
		c.log().Info("drain finished",
			"stop", r,
			"polls", sum.Polls,
			"received", humanize.Comma(int64(sum.Received)),
			"persisted", humanize.Comma(int64(sum.Persisted)),
			"dead_lettered", sum.DeadLettered,
			"retained", sum.Retained,
			"took", sum.Finished.Sub(sum.Started).Round(time.Millisecond),
		)
		return sum
	}

	opts := queue.ReceiveOptions{Max: c.MaxBatch, Wait: c.Wait, Visibility: c.Visibility}
	for {
		if err := ctx.Err(); err != nil {
			return finish(stopFor(err)), nil
		}
		if c.budgetLow(ctx) {
			return finish(StopBudget), nil
		}
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				if err := ctx.Err(); err != nil {
					return finish(stopFor(err)), nil
				}
				// the wait would overrun the deadline
				return finish(StopBudget), nil
			}
		}

		msgs, err := c.Queue.Receive(ctx, opts)
		sum.Polls++
		c.Metrics.Poll()
		if err != nil {
			if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
				return finish(stopFor(cerr)), nil
			}
			finish(StopError)
			return sum, fmt.Errorf("receive: %w", err)
		}
		if len(msgs) == 0 {
			return finish(StopQueueEmpty), nil
		}

		rep := c.Handler.ProcessBatch(ctx, msgs)
		sum.add(rep)
		c.log().Debug("batch done",
			"received", len(msgs),
			"persisted", rep.Count(batch.Persisted),
			"dead_lettered", rep.Count(batch.DeadLettered),
			"retained", rep.Count(batch.Retained),
		)
	}
}

func stopFor(ctxErr error) StopReason {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return StopBudget
	}
	return StopCancelled
}

func (c *Consumer) budgetLow(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return false
	}
	return deadline.Sub(c.now()) < c.SafetyMargin
}

func (c *Consumer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Consumer) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
