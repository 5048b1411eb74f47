// Package sars handles notices from the SARS procurement page.
package sars

import (
	"fmt"

	"tender-writer/internal/domain"
	"tender-writer/internal/source"
)

type Message struct {
	source.Common
	BriefingSession string                 `json:"briefingSession"`
	DocumentsList   []domain.SupportingDoc `json:"documents"`
}

func (m *Message) SourceType() domain.SourceType { return domain.SourceSars }

// Documents prefers "documents" and falls back to "supportingDocs".
func (m *Message) Documents() []domain.SupportingDoc {
	if len(m.DocumentsList) > 0 {
		return m.DocumentsList
	}
	return m.SupportingDocs
}

type Detail struct {
	domain.Notice
	BriefingSession string
}

func (d Detail) Source() domain.SourceType { return domain.SourceSars }
func (d Detail) Table() string             { return "sars_tenders" }

func (d Detail) Columns() []string {
	return append(append([]string{}, domain.NoticeColumns...), "briefing_session")
}

func (d Detail) Values() []any {
	return append(d.NoticeValues(), d.BriefingSession)
}

func Handler() source.Handler {
	return source.Handler{
		Type:    domain.SourceSars,
		Aliases: []string{"sars", "sarslambda", "sarsscraper"},
		New:     func() source.Variant { return &Message{} },
		Detail:  detail,
	}
}

func detail(v source.Variant) (domain.Detail, error) {
	m, ok := v.(*Message)
	if !ok {
		return nil, fmt.Errorf("sars: unexpected variant %T", v)
	}
	return Detail{Notice: m.Notice(), BriefingSession: m.BriefingSession}, nil
}
