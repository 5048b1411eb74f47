// Package kafkadlq publishes dead letters to a Kafka topic.
package kafkadlq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"tender-writer/internal/queue"
)

// MessageWriter is the part of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Sink struct {
	W MessageWriter
}

var _ queue.DeadLetterSink = (*Sink)(nil)

// NewWriter writes synchronously and waits for all in-sync replicas, so a
// nil error means the dead letter is durable.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // keeps one routing key on one partition
		BatchSize:    queue.MaxBatch,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

func New(brokers []string, topic string) *Sink {
	return &Sink{W: NewWriter(brokers, topic)}
}

// SendBatch writes every envelope in one call keyed by routing key.
// Per-message write errors map back to the failed entries.
func (s *Sink) SendBatch(ctx context.Context, letters []queue.DeadLetter) ([]queue.EntryFailure, error) {
	if len(letters) == 0 {
		return nil, nil
	}
	var (
		msgs   = make([]kafka.Message, 0, len(letters))
		ids    = make([]string, 0, len(letters))
		failed []queue.EntryFailure
	)
	for _, dl := range letters {
		body, err := dl.Body()
		if err != nil {
			failed = append(failed, queue.EntryFailure{ID: dl.Message.ID, Err: err})
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(dl.Message.RoutingKey),
			Value: body,
			Headers: []kafka.Header{
				{Key: "errorType", Value: []byte(dl.Envelope.ErrorType)},
				{Key: "messageId", Value: []byte(dl.Message.ID)},
			},
		})
		ids = append(ids, dl.Message.ID)
	}
	if len(msgs) == 0 {
		return failed, nil
	}

	err := s.W.WriteMessages(ctx, msgs...)
	if err == nil {
		return failed, nil
	}

	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) && len(werrs) == len(msgs) {
		for i, e := range werrs {
			if e != nil {
				failed = append(failed, queue.EntryFailure{ID: ids[i], Err: e})
			}
		}
		return failed, nil
	}

	err = fmt.Errorf("kafka dead-letter write: %w", err)
	return append(failed, queue.FailAll(ids, err)...), err
}

func (s *Sink) Close() error {
	return s.W.Close()
}
