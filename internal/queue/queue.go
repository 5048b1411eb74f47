// Package queue defines the work-queue contract the writer consumes and the
// dead-letter envelope it produces.
package queue

import (
	"context"
	"time"
)

// MaxBatch is the largest receive, delete or send batch a queue accepts.
const MaxBatch = 10

// Message is one delivery of a queued payload. ReceiptToken identifies this
// delivery and is what deletes it.
type Message struct {
	ID           string
	Body         string
	RoutingKey   string
	ReceiptToken string
	ReceiveCount int
	SentAt       time.Time
}

type ReceiveOptions struct {
	Max        int
	Wait       time.Duration
	Visibility time.Duration
}

// EntryFailure reports one batch entry the queue did not accept.
type EntryFailure struct {
	ID  string
	Err error
}

// Source is the work queue.
type Source interface {
	Receive(ctx context.Context, opts ReceiveOptions) ([]Message, error)
	// DeleteBatch acknowledges messages. It returns the entries that were
	// not deleted; err is set when a whole call failed.
	DeleteBatch(ctx context.Context, msgs []Message) ([]EntryFailure, error)
}

// DeadLetterSink accepts messages that could not be written.
type DeadLetterSink interface {
	// SendBatch relocates dead letters. It returns the entries that were not
	// accepted; err is set when a whole call failed.
	SendBatch(ctx context.Context, letters []DeadLetter) ([]EntryFailure, error)
}

// Chunks splits xs into consecutive slices of at most n elements.
func Chunks[T any](xs []T, n int) [][]T {
	if n <= 0 {
		n = MaxBatch
	}
	var out [][]T
	for len(xs) > 0 {
		k := min(n, len(xs))
		out = append(out, xs[:k:k])
		xs = xs[k:]
	}
	return out
}

// FailAll reports every id in ids as failed with err.
func FailAll(ids []string, err error) []EntryFailure {
	out := make([]EntryFailure, len(ids))
	for i, id := range ids {
		out[i] = EntryFailure{ID: id, Err: err}
	}
	return out
}
