// Package batch writes a received batch message by message and decides,
// per message, whether it is acknowledged, dead-lettered or retained.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"tender-writer/internal/domain"
	"tender-writer/internal/fault"
	"tender-writer/internal/metrics"
	"tender-writer/internal/queue"
	"tender-writer/internal/source"
	"tender-writer/internal/store"
	"tender-writer/internal/tags"
	"tender-writer/internal/tender"
)

// Acknowledger deletes handled messages from the source queue.
type Acknowledger interface {
	DeleteBatch(ctx context.Context, msgs []queue.Message) ([]queue.EntryFailure, error)
}

type Processor struct {
	Sources     *source.Registry
	Mapper      *tender.Mapper
	Tags        *tags.Resolver
	Store       store.Gateway
	Queue       Acknowledger
	DeadLetters queue.DeadLetterSink

	// ProcessedBy is stamped into every dead-letter envelope.
	ProcessedBy string

	Log     *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// ProcessBatch handles msgs in order. Each message gets its own unit of
// work, so one failure never touches another message's writes. Failed
// messages are dead-lettered in one submission; only those the destination
// accepted are acknowledged. The batch runs to completion even if ctx is
// cancelled while it is in flight.
func (p *Processor) ProcessBatch(ctx context.Context, msgs []queue.Message) Report {
	ctx = context.WithoutCancel(ctx)
	start := p.now()
	defer func() { p.Metrics.ObserveBatch(p.now().Sub(start)) }()

	rep := Report{Results: make([]Result, len(msgs))}
	var letters []queue.DeadLetter

	for i, msg := range msgs {
		res := Result{Message: msg}
		id, err := p.handle(ctx, msg)
		if err == nil {
			res.Outcome = Persisted
			res.TenderID = id
		} else {
			res.Category = fault.CategoryOf(err)
			res.Err = err
			p.Metrics.Failure(string(res.Category))
			attrs := []any{
				"message_id", msg.ID,
				"routing_key", msg.RoutingKey,
				"category", res.Category,
				"receive_count", msg.ReceiveCount,
				"err", err,
			}
			if res.Category == fault.UnsupportedSource {
				attrs = append(attrs, "known_keys", p.Sources.Keys())
			}
			p.log().Warn("message failed", attrs...)
			letters = append(letters, queue.NewDeadLetter(
				msg, string(res.Category), err.Error(), fault.StackOf(err), p.ProcessedBy, p.now()))
		}
		rep.Results[i] = res
	}

	if len(letters) > 0 {
		rep.DeadLetterErr = p.deadLetter(ctx, letters, rep.Results)
	}

	var ack []queue.Message
	for _, res := range rep.Results {
		if res.Outcome == Persisted || res.Outcome == DeadLettered {
			ack = append(ack, res.Message)
		}
	}
	rep.DeleteErr = p.acknowledge(ctx, ack, rep.Results)

	p.Metrics.Outcome(string(Persisted), rep.Count(Persisted))
	p.Metrics.Outcome(string(DeadLettered), rep.Count(DeadLettered))
	p.Metrics.Outcome(string(Retained), rep.Count(Retained))
	return rep
}

func (p *Processor) deadLetter(ctx context.Context, letters []queue.DeadLetter, results []Result) error {
	rejected, callErr := p.DeadLetters.SendBatch(ctx, letters)
	if callErr != nil && len(rejected) == 0 {
		ids := make([]string, len(letters))
		for i, l := range letters {
			ids[i] = l.Message.ID
		}
		rejected = queue.FailAll(ids, callErr)
	}
	bad := make(map[string]error, len(rejected))
	for _, f := range rejected {
		bad[f.ID] = f.Err
	}

	for i := range results {
		if results[i].Err == nil {
			continue
		}
		if _, ok := bad[results[i].Message.ID]; ok {
			results[i].Outcome = Retained
		} else {
			results[i].Outcome = DeadLettered
		}
	}

	if len(rejected) == 0 {
		return nil
	}
	p.Metrics.DeadLetterFailed(len(rejected))
	errs := []error{callErr}
	for _, f := range rejected {
		errs = append(errs, fmt.Errorf("%s: %w", f.ID, f.Err))
	}
	err := &fault.Error{Category: fault.DeadLetterSubmissionFailure, Op: "dead-letter", Err: errors.Join(errs...)}
	p.log().Error("dead-letter submission failed; failed messages stay on the source queue",
		"critical", true,
		"category", fault.DeadLetterSubmissionFailure,
		"rejected", len(rejected),
		"submitted", len(letters),
		"err", err,
	)
	return err
}

func (p *Processor) acknowledge(ctx context.Context, ack []queue.Message, results []Result) error {
	if len(ack) == 0 {
		return nil
	}
	failed, callErr := p.Queue.DeleteBatch(ctx, ack)
	if callErr != nil && len(failed) == 0 {
		ids := make([]string, len(ack))
		for i, m := range ack {
			ids[i] = m.ID
		}
		failed = queue.FailAll(ids, callErr)
	}
	bad := make(map[string]error, len(failed))
	for _, f := range failed {
		bad[f.ID] = f.Err
	}
	for i := range results {
		o := results[i].Outcome
		if o != Persisted && o != DeadLettered {
			continue
		}
		_, notDeleted := bad[results[i].Message.ID]
		results[i].Deleted = !notDeleted
	}

	if len(failed) == 0 {
		return nil
	}
	p.Metrics.DeleteFailed(len(failed))
	errs := []error{callErr}
	for _, f := range failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.ID, f.Err))
	}
	err := &fault.Error{Category: fault.DeleteFailure, Op: "delete", Err: errors.Join(errs...)}
	p.log().Warn("acknowledgement failed; messages will be redelivered",
		"category", fault.DeleteFailure,
		"failed", len(failed),
		"err", err,
	)
	return err
}

// handle runs one message through decode, map and persist. A panic is
// contained to this message.
func (p *Processor) handle(ctx context.Context, msg queue.Message) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.Panic("process "+msg.ID, r, debug.Stack())
		}
	}()

	v, err := p.Sources.Decode(msg.RoutingKey, []byte(msg.Body))
	if err != nil {
		return "", err
	}
	rec, err := p.Mapper.Map(v)
	if err != nil {
		return "", err
	}
	if err := p.persist(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (p *Processor) persist(ctx context.Context, rec *domain.Tender) error {
	u, err := p.Store.Begin(ctx)
	if err != nil {
		return fault.Persistence("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = u.Rollback()
		}
	}()

	scope := tags.NewScope()
	rec.Tags, err = p.Tags.Resolve(ctx, u, rec.TagNames, scope)
	if err != nil {
		return fault.Persistence("resolve tags", err)
	}
	if err := u.SaveTender(ctx, rec, scope.Created()); err != nil {
		return fault.Persistence("save tender", err)
	}
	if err := u.Commit(); err != nil {
		return fault.Persistence("commit", err)
	}
	committed = true
	return nil
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
