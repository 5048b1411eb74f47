package batch

import (
	"context"
	"errors"
	"strings"
	"time"

	"tender-writer/internal/domain"
	"tender-writer/internal/queue"
	"tender-writer/internal/sources"
	"tender-writer/internal/store"
	"tender-writer/internal/tags"
	"tender-writer/internal/tender"
)

type fakeGateway struct {
	tags      map[string]domain.Tag
	tenders   map[string]*domain.Tender
	failTitle string
	finds     int
	rollbacks int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{tags: map[string]domain.Tag{}, tenders: map[string]*domain.Tender{}}
}

func (g *fakeGateway) Begin(context.Context) (store.Unit, error) {
	return &fakeUnit{g: g}, nil
}

type fakeUnit struct {
	g       *fakeGateway
	tags    []domain.Tag
	tenders []*domain.Tender
}

func (u *fakeUnit) FindTags(_ context.Context, names []string) ([]domain.Tag, error) {
	u.g.finds++
	var out []domain.Tag
	for _, n := range names {
		if t, ok := u.g.tags[domain.TagKey(n)]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (u *fakeUnit) SaveTender(_ context.Context, t *domain.Tender, created []domain.Tag) error {
	if u.g.failTitle != "" && t.Title == u.g.failTitle {
		return errors.New("constraint violation")
	}
	u.tags = append(u.tags, created...)
	u.tenders = append(u.tenders, t)
	return nil
}

func (u *fakeUnit) Commit() error {
	for _, t := range u.tags {
		u.g.tags[domain.TagKey(t.Name)] = t
	}
	for _, t := range u.tenders {
		u.g.tenders[t.ID] = t
	}
	return nil
}

func (u *fakeUnit) Rollback() error {
	u.g.rollbacks++
	return nil
}

type exploding struct{}

func (exploding) Begin(context.Context) (store.Unit, error) { panic("driver bug") }

type fakeQueue struct {
	deleted   []queue.Message
	deleteErr error
	failIDs   map[string]bool
}

func (q *fakeQueue) DeleteBatch(_ context.Context, msgs []queue.Message) ([]queue.EntryFailure, error) {
	if q.deleteErr != nil {
		ids := make([]string, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		return queue.FailAll(ids, q.deleteErr), q.deleteErr
	}
	var failed []queue.EntryFailure
	for _, m := range msgs {
		if q.failIDs[m.ID] {
			failed = append(failed, queue.EntryFailure{ID: m.ID, Err: errors.New("receipt expired")})
			continue
		}
		q.deleted = append(q.deleted, m)
	}
	return failed, nil
}

func (q *fakeQueue) deletedIDs() []string {
	var out []string
	for _, m := range q.deleted {
		out = append(out, m.ID)
	}
	return out
}

type fakeDLQ struct {
	calls int
	sent  []queue.DeadLetter
	err   error
	// rejectIDs are refused one by one while the call itself succeeds.
	rejectIDs map[string]bool
}

func (d *fakeDLQ) SendBatch(_ context.Context, letters []queue.DeadLetter) ([]queue.EntryFailure, error) {
	d.calls++
	if d.err != nil {
		ids := make([]string, len(letters))
		for i, l := range letters {
			ids[i] = l.Message.ID
		}
		return queue.FailAll(ids, d.err), d.err
	}
	var rejected []queue.EntryFailure
	for _, l := range letters {
		if d.rejectIDs[l.Message.ID] {
			rejected = append(rejected, queue.EntryFailure{ID: l.Message.ID, Err: errors.New("entry rejected")})
			continue
		}
		d.sent = append(d.sent, l)
	}
	return rejected, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newProcessor(g store.Gateway, q Acknowledger, dlq queue.DeadLetterSink) *Processor {
	reg := sources.Registry()
	m := tender.NewMapper(reg)
	m.Now = func() time.Time { return fixedNow }
	return &Processor{
		Sources:     reg,
		Mapper:      m,
		Tags:        tags.NewResolver(),
		Store:       g,
		Queue:       q,
		DeadLetters: dlq,
		ProcessedBy: "tender-writer-test",
		Now:         func() time.Time { return fixedNow },
	}
}

func msg(id, key, body string) queue.Message {
	return queue.Message{ID: id, RoutingKey: key, Body: body, ReceiptToken: "r-" + id}
}

func tenderBody(title string, tags ...string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = `"` + t + `"`
	}
	return `{"title":"` + title + `","closingDate":"2030-01-01T00:00:00Z","tags":[` + strings.Join(quoted, ",") + `]}`
}
