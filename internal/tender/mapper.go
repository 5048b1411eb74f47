// Package tender converts decoded portal messages into canonical tenders.
package tender

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tender-writer/internal/domain"
	"tender-writer/internal/fault"
	"tender-writer/internal/source"
	"tender-writer/internal/textutil"
)

type Mapper struct {
	Sources *source.Registry
	Now     func() time.Time
	NewID   func() string
}

func NewMapper(reg *source.Registry) *Mapper {
	return &Mapper{Sources: reg, Now: time.Now, NewID: uuid.NewString}
}

// Map builds the canonical tender and its source sub-record. Tag names are
// carried over unresolved.
func (m *Mapper) Map(v source.Variant) (*domain.Tender, error) {
	st := v.SourceType()
	h, ok := m.Sources.Handler(st)
	if !ok {
		return nil, fault.Unsupported("map", string(st))
	}
	detail, err := h.Detail(v)
	if err != nil {
		return nil, &fault.Error{Category: fault.UnexpectedFault, Op: "map " + string(st), Err: err}
	}
	if detail.Source() != st {
		return nil, &fault.Error{
			Category: fault.UnexpectedFault,
			Op:       "map " + string(st),
			Err:      fmt.Errorf("detail for %s built by %s handler", detail.Source(), st),
		}
	}

	now := m.Now().UTC()
	c := v.Shared()

	t := &domain.Tender{
		ID:             m.NewID(),
		Title:          textutil.CleanText(c.Title),
		Description:    textutil.PlainText(c.Description),
		Summary:        textutil.PlainText(c.AISummary),
		Source:         st,
		PublishedDate:  c.PublishedDate.Time,
		ClosingDate:    c.ClosingDate.Time,
		TagNames:       append([]string(nil), c.Tags...),
		SupportingDocs: copyDocs(v.Documents()),
		Detail:         detail,
	}
	if t.PublishedDate.IsZero() {
		t.PublishedDate = now
	}

	var explicit string
	if sr, ok := v.(source.StatusReporter); ok {
		explicit = sr.ExplicitStatus()
	}
	t.Status = DeriveStatus(explicit, t.ClosingDate, now)
	return t, nil
}

func copyDocs(in []domain.SupportingDoc) []domain.SupportingDoc {
	var out []domain.SupportingDoc
	for _, d := range in {
		d.Name = textutil.CleanText(d.Name)
		d.URL = strings.TrimSpace(d.URL)
		if d.Name == "" && d.URL == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}
