// Package etender handles notices from the National Treasury eTender portal.
package etender

import (
	"fmt"

	"tender-writer/internal/domain"
	"tender-writer/internal/source"
)

type Message struct {
	source.Common
	Status             string `json:"status"`
	Category           string `json:"category"`
	Department         string `json:"department"`
	TenderType         string `json:"tenderType"`
	ContactPerson      string `json:"contactPerson"`
	Telephone          string `json:"telephone"`
	BriefingSession    bool   `json:"briefingSession"`
	BriefingCompulsory bool   `json:"briefingCompulsory"`
	BriefingVenue      string `json:"briefingVenue"`
}

func (m *Message) SourceType() domain.SourceType { return domain.SourceETender }

// ExplicitStatus is the portal's own status ("Active", "Cancelled", ...).
func (m *Message) ExplicitStatus() string { return m.Status }

type Detail struct {
	domain.Notice
	Category           string
	Department         string
	TenderType         string
	ContactPerson      string
	Telephone          string
	BriefingSession    bool
	BriefingCompulsory bool
	BriefingVenue      string
}

func (d Detail) Source() domain.SourceType { return domain.SourceETender }
func (d Detail) Table() string             { return "etender_tenders" }

func (d Detail) Columns() []string {
	return append(append([]string{}, domain.NoticeColumns...),
		"category", "department", "tender_type", "contact_person", "telephone",
		"briefing_session", "briefing_compulsory", "briefing_venue")
}

func (d Detail) Values() []any {
	return append(d.NoticeValues(),
		d.Category, d.Department, d.TenderType, d.ContactPerson, d.Telephone,
		d.BriefingSession, d.BriefingCompulsory, d.BriefingVenue)
}

func Handler() source.Handler {
	return source.Handler{
		Type:    domain.SourceETender,
		Aliases: []string{"etender", "etenders", "etenderlambda", "etenderslambda"},
		New:     func() source.Variant { return &Message{} },
		Detail:  detail,
	}
}

func detail(v source.Variant) (domain.Detail, error) {
	m, ok := v.(*Message)
	if !ok {
		return nil, fmt.Errorf("etender: unexpected variant %T", v)
	}
	return Detail{
		Notice:             m.Notice(),
		Category:           m.Category,
		Department:         m.Department,
		TenderType:         m.TenderType,
		ContactPerson:      m.ContactPerson,
		Telephone:          m.Telephone,
		BriefingSession:    m.BriefingSession,
		BriefingCompulsory: m.BriefingCompulsory,
		BriefingVenue:      m.BriefingVenue,
	}, nil
}
