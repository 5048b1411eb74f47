// Package sqlqueue is a durable work queue kept in the tender store. It
// mirrors SQS semantics: visibility timeouts, per-delivery receipts and
// at-least-once delivery.
package sqlqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tender-writer/internal/queue"
	"tender-writer/internal/store"
)

// fixed width so text comparison orders correctly
const stampLayout = "2006-01-02T15:04:05.000000Z"

var errReceiptExpired = errors.New("receipt expired or message already deleted")

type Queue struct {
	DB   *store.DB
	Name string

	// PollInterval paces re-checks while a receive waits for messages.
	PollInterval time.Duration
	// DefaultVisibility applies when a receive does not set one.
	DefaultVisibility time.Duration

	NewID func() string
	Now   func() time.Time
}

func New(db *store.DB, name string) *Queue {
	return &Queue{
		DB:                db,
		Name:              name,
		PollInterval:      250 * time.Millisecond,
		DefaultVisibility: 30 * time.Second,
		NewID:             uuid.NewString,
		Now:               time.Now,
	}
}

var (
	_ queue.Source         = (*Queue)(nil)
	_ queue.DeadLetterSink = (*Queue)(nil)
)

func (q *Queue) stamp(t time.Time) string { return t.UTC().Format(stampLayout) }

// Enqueue adds a message and returns its id.
func (q *Queue) Enqueue(ctx context.Context, routingKey, body string) (string, error) {
	id := q.NewID()
	now := q.stamp(q.Now())
	_, err := q.DB.Pool.ExecContext(ctx, q.DB.Rebind(`
INSERT INTO queue_messages (id, queue, body, routing_key, visible_at, enqueued_at)
VALUES (?, ?, ?, ?, ?, ?);`), id, q.Name, body, routingKey, now, now)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

// Receive leases up to opts.Max visible messages. With opts.Wait set it
// keeps checking until a message shows up or the wait runs out.
func (q *Queue) Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	limit := opts.Max
	if limit <= 0 || limit > queue.MaxBatch {
		limit = queue.MaxBatch
	}
	vis := opts.Visibility
	if vis <= 0 {
		vis = q.DefaultVisibility
	}
	deadline := q.Now().Add(opts.Wait)

	for {
		msgs, err := q.lease(ctx, limit, vis)
		if err != nil || len(msgs) > 0 || !q.Now().Before(deadline) {
			return msgs, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.PollInterval):
		}
	}
}

func (q *Queue) lease(ctx context.Context, limit int, vis time.Duration) ([]queue.Message, error) {
	tx, err := q.DB.Pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := q.Now()
	query := `
SELECT id, body, routing_key, receive_count, enqueued_at
FROM queue_messages
WHERE queue = ? AND visible_at <= ?
ORDER BY enqueued_at, id
LIMIT ?`
	if q.DB.Dialect() == store.Postgres {
		query += ` FOR UPDATE SKIP LOCKED`
	}
	rows, err := tx.QueryContext(ctx, q.DB.Rebind(query+";"), q.Name, q.stamp(now), limit)
	if err != nil {
		return nil, fmt.Errorf("lease: %w", err)
	}
	var msgs []queue.Message
	for rows.Next() {
		var (
			m        queue.Message
			enqueued string
		)
		if err := rows.Scan(&m.ID, &m.Body, &m.RoutingKey, &m.ReceiveCount, &enqueued); err != nil {
			rows.Close()
			return nil, err
		}
		m.SentAt, _ = time.Parse(stampLayout, enqueued)
		msgs = append(msgs, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	visibleAt := q.stamp(now.Add(vis))
	for i := range msgs {
		msgs[i].ReceiptToken = q.NewID()
		msgs[i].ReceiveCount++
		if _, err := tx.ExecContext(ctx, q.DB.Rebind(`
UPDATE queue_messages SET receipt = ?, receive_count = ?, visible_at = ? WHERE id = ?;`),
			msgs[i].ReceiptToken, msgs[i].ReceiveCount, visibleAt, msgs[i].ID,
		); err != nil {
			return nil, fmt.Errorf("lease %s: %w", msgs[i].ID, err)
		}
	}
	return msgs, tx.Commit()
}

// DeleteBatch removes messages whose receipt is still current.
func (q *Queue) DeleteBatch(ctx context.Context, msgs []queue.Message) ([]queue.EntryFailure, error) {
	var failed []queue.EntryFailure
	for _, m := range msgs {
		res, err := q.DB.Pool.ExecContext(ctx, q.DB.Rebind(`
DELETE FROM queue_messages WHERE id = ? AND queue = ? AND receipt = ?;`), m.ID, q.Name, m.ReceiptToken)
		if err != nil {
			failed = append(failed, queue.EntryFailure{ID: m.ID, Err: err})
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			failed = append(failed, queue.EntryFailure{ID: m.ID, Err: errReceiptExpired})
		}
	}
	return failed, nil
}

// SendBatch enqueues every envelope on this queue in one transaction.
func (q *Queue) SendBatch(ctx context.Context, letters []queue.DeadLetter) ([]queue.EntryFailure, error) {
	if len(letters) == 0 {
		return nil, nil
	}
	ids := make([]string, len(letters))
	for i, dl := range letters {
		ids[i] = dl.Message.ID
	}

	err := q.inTx(ctx, func(tx *sql.Tx) error {
		now := q.stamp(q.Now())
		for _, dl := range letters {
			body, err := dl.Body()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, q.DB.Rebind(`
INSERT INTO queue_messages (id, queue, body, routing_key, visible_at, enqueued_at)
VALUES (?, ?, ?, ?, ?, ?);`), q.NewID(), q.Name, string(body), dl.Message.RoutingKey, now, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("dead-letter send: %w", err)
		return queue.FailAll(ids, err), err
	}
	return nil, nil
}

func (q *Queue) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := q.DB.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Depth counts messages on the queue, leased or not.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	var n int
	err := q.DB.Pool.QueryRowContext(ctx, q.DB.Rebind(`SELECT COUNT(*) FROM queue_messages WHERE queue = ?;`), q.Name).Scan(&n)
	return n, err
}

// Bodies returns the bodies on the queue in arrival order.
func (q *Queue) Bodies(ctx context.Context) ([]string, error) {
	rows, err := q.DB.Pool.QueryContext(ctx, q.DB.Rebind(`
SELECT body FROM queue_messages WHERE queue = ? ORDER BY enqueued_at, id;`), q.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
