package sqlqueue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-writer/internal/queue"
	"tender-writer/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newQueue(t *testing.T, name string) (*Queue, *clock) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.Options{DSN: filepath.Join(t.TempDir(), "q.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	c := &clock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	q := New(db, name)
	q.Now = c.now
	return q, c
}

func TestLeaseHidesUntilVisibilityExpires(t *testing.T) {
	ctx := context.Background()
	q, c := newQueue(t, "tenders")

	id, err := q.Enqueue(ctx, "Eskom", `{"title":"a"}`)
	require.NoError(t, err)

	got, err := q.Receive(ctx, queue.ReceiveOptions{Max: 10, Visibility: time.Minute})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "Eskom", got[0].RoutingKey)
	assert.Equal(t, 1, got[0].ReceiveCount)
	assert.NotEmpty(t, got[0].ReceiptToken)

	again, err := q.Receive(ctx, queue.ReceiveOptions{Max: 10})
	require.NoError(t, err)
	assert.Empty(t, again)

	c.t = c.t.Add(2 * time.Minute)
	redelivered, err := q.Receive(ctx, queue.ReceiveOptions{Max: 10})
	require.NoError(t, err)
	require.Len(t, redelivered, 1)
	assert.Equal(t, 2, redelivered[0].ReceiveCount)
	assert.NotEqual(t, got[0].ReceiptToken, redelivered[0].ReceiptToken)

	// the first receipt is stale now
	failed, err := q.DeleteBatch(ctx, got)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	failed, err = q.DeleteBatch(ctx, redelivered)
	require.NoError(t, err)
	assert.Empty(t, failed)

	n, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReceiveCapsAtTen(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t, "tenders")
	for i := 0; i < 12; i++ {
		_, err := q.Enqueue(ctx, "sars", "{}")
		require.NoError(t, err)
	}
	got, err := q.Receive(ctx, queue.ReceiveOptions{Max: 50})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestSendBatchWritesEnvelopes(t *testing.T) {
	ctx := context.Background()
	q, c := newQueue(t, "dead-letter")

	msg := queue.Message{ID: "m-1", Body: "not json", RoutingKey: "transnet"}
	failed, err := q.SendBatch(ctx, []queue.DeadLetter{
		queue.NewDeadLetter(msg, "MalformedPayload", "invalid character", "", "tender-writer", c.t),
	})
	require.NoError(t, err)
	assert.Empty(t, failed)

	bodies, err := q.Bodies(ctx)
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	assert.JSONEq(t, `{
		"originalMessageBody": "not json",
		"routingKey": "transnet",
		"errorMessage": "invalid character",
		"errorType": "MalformedPayload",
		"stackTrace": null,
		"processedBy": "tender-writer",
		"timestamp": "2026-04-01T09:00:00Z"
	}`, bodies[0])
}

func TestQueuesAreIsolated(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t, "tenders")
	other := New(q.DB, "dead-letter")

	_, err := other.Enqueue(ctx, "eskom", "{}")
	require.NoError(t, err)
	got, err := q.Receive(ctx, queue.ReceiveOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
