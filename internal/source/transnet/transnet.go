// Package transnet handles notices from the Transnet eTender portal.
package transnet

import (
	"fmt"

	"tender-writer/internal/domain"
	"tender-writer/internal/source"
)

type Message struct {
	source.Common
	// Transnet reports the delivery location under "region".
	Region        string                 `json:"region"`
	Institution   string                 `json:"institution"`
	Category      string                 `json:"category"`
	ContactPerson string                 `json:"contactPerson"`
	TenderType    string                 `json:"tenderType"`
	Attachments   []domain.SupportingDoc `json:"attachments"`
}

func (m *Message) SourceType() domain.SourceType { return domain.SourceTransnet }

// Documents prefers "attachments" and falls back to "supportingDocs".
func (m *Message) Documents() []domain.SupportingDoc {
	if len(m.Attachments) > 0 {
		return m.Attachments
	}
	return m.SupportingDocs
}

type Detail struct {
	domain.Notice
	Location      string
	Institution   string
	Category      string
	ContactPerson string
	TenderType    string
}

func (d Detail) Source() domain.SourceType { return domain.SourceTransnet }
func (d Detail) Table() string             { return "transnet_tenders" }

func (d Detail) Columns() []string {
	return append(append([]string{}, domain.NoticeColumns...),
		"location", "institution", "category", "contact_person", "tender_type")
}

func (d Detail) Values() []any {
	return append(d.NoticeValues(), d.Location, d.Institution, d.Category, d.ContactPerson, d.TenderType)
}

func Handler() source.Handler {
	return source.Handler{
		Type:    domain.SourceTransnet,
		Aliases: []string{"transnet", "transnetlambda", "transnetscraper"},
		New:     func() source.Variant { return &Message{} },
		Detail:  detail,
	}
}

func detail(v source.Variant) (domain.Detail, error) {
	m, ok := v.(*Message)
	if !ok {
		return nil, fmt.Errorf("transnet: unexpected variant %T", v)
	}
	return Detail{
		Notice:        m.Notice(),
		Location:      m.Region,
		Institution:   m.Institution,
		Category:      m.Category,
		ContactPerson: m.ContactPerson,
		TenderType:    m.TenderType,
	}, nil
}
