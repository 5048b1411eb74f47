package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"tender-writer/internal/batch"
	"tender-writer/internal/queue"
)

type scriptedQueue struct {
	batches [][]queue.Message
	err     error
	calls   int
	opts    []queue.ReceiveOptions
	onCall  func()
}

func (q *scriptedQueue) Receive(_ context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	q.calls++
	q.opts = append(q.opts, opts)
	if q.onCall != nil {
		q.onCall()
	}
	if q.err != nil {
		return nil, q.err
	}
	if len(q.batches) == 0 {
		return nil, nil
	}
	b := q.batches[0]
	q.batches = q.batches[1:]
	return b, nil
}

type recordingHandler struct {
	batches int
}

func (h *recordingHandler) ProcessBatch(_ context.Context, msgs []queue.Message) batch.Report {
	h.batches++
	rep := batch.Report{}
	for i, m := range msgs {
		o := batch.Persisted
		if i == 0 && len(msgs) > 1 {
			o = batch.DeadLettered
		}
		rep.Results = append(rep.Results, batch.Result{Message: m, Outcome: o})
	}
	return rep
}

func msgs(n int) []queue.Message {
	return make([]queue.Message, n)
}

func TestDrainStopsOnEmptyPoll(t *testing.T) {
	q := &scriptedQueue{batches: [][]queue.Message{msgs(10), msgs(3)}}
	h := &recordingHandler{}
	c := &Consumer{Queue: q, Handler: h, MaxBatch: 10, Wait: time.Second, Visibility: time.Minute}

	sum, err := c.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopQueueEmpty, sum.Stop)
	assert.Equal(t, 3, sum.Polls)
	assert.Equal(t, 13, sum.Received)
	assert.Equal(t, 11, sum.Persisted)
	assert.Equal(t, 2, sum.DeadLettered)
	assert.Equal(t, 2, h.batches)
	assert.Equal(t, queue.ReceiveOptions{Max: 10, Wait: time.Second, Visibility: time.Minute}, q.opts[0])
}

func TestDrainStopsWhenBudgetRunsLow(t *testing.T) {
	now := time.Now()
	clock := now
	q := &scriptedQueue{
		batches: [][]queue.Message{msgs(1), msgs(1), msgs(1), msgs(1)},
		onCall:  func() { clock = clock.Add(40 * time.Minute) },
	}
	ctx, cancel := context.WithDeadline(context.Background(), now.Add(time.Hour))
	defer cancel()

	c := &Consumer{
		Queue:        q,
		Handler:      &recordingHandler{},
		SafetyMargin: 10 * time.Minute,
		Now:          func() time.Time { return clock },
	}
	sum, err := c.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopBudget, sum.Stop)
	assert.Equal(t, 2, sum.Polls)
}

func TestDrainDoesNotPollWithoutBudget(t *testing.T) {
	q := &scriptedQueue{batches: [][]queue.Message{msgs(1)}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c := &Consumer{Queue: q, Handler: &recordingHandler{}, SafetyMargin: time.Hour}
	sum, err := c.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopBudget, sum.Stop)
	assert.Zero(t, q.calls)
}

func TestDrainPropagatesReceiveError(t *testing.T) {
	boom := errors.New("access denied")
	c := &Consumer{Queue: &scriptedQueue{err: boom}, Handler: &recordingHandler{}}

	sum, err := c.Drain(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StopError, sum.Stop)
	assert.Equal(t, 1, sum.Polls)
}

func TestDrainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := &scriptedQueue{batches: [][]queue.Message{msgs(1)}}

	sum, err := (&Consumer{Queue: q, Handler: &recordingHandler{}}).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, sum.Stop)
	assert.Zero(t, q.calls)
}

func TestDrainUsesLimiter(t *testing.T) {
	q := &scriptedQueue{batches: [][]queue.Message{msgs(1), msgs(1)}}
	c := &Consumer{
		Queue:   q,
		Handler: &recordingHandler{},
		Limiter: rate.NewLimiter(rate.Inf, 1),
	}
	sum, err := c.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Polls)
}
