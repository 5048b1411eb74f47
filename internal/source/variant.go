// Package source decodes queue payloads into per-portal tender messages.
package source

import (
	"tender-writer/internal/domain"
)

// Variant is a decoded message from one procurement portal.
type Variant interface {
	SourceType() domain.SourceType
	Shared() *Common
	Documents() []domain.SupportingDoc
}

// StatusReporter is implemented by variants whose portal publishes an
// explicit tender status.
type StatusReporter interface {
	ExplicitStatus() string
}

// Common carries the fields every portal message shares.
type Common struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	TenderNumber   Text                   `json:"tenderNumber"`
	Reference      Text                   `json:"reference"`
	Audience       string                 `json:"audience"`
	OfficeLocation string                 `json:"officeLocation"`
	Email          string                 `json:"email"`
	Address        string                 `json:"address"`
	Province       string                 `json:"province"`
	SupportingDocs []domain.SupportingDoc `json:"supportingDocs"`
	Tags           []string               `json:"tags"`
	AISummary      string                 `json:"aiSummary"`
	PublishedDate  Timestamp              `json:"publishedDate"`
	ClosingDate    Timestamp              `json:"closingDate"`
}

func (c *Common) Shared() *Common { return c }

func (c *Common) Documents() []domain.SupportingDoc { return c.SupportingDocs }

func (c *Common) Notice() domain.Notice {
	return domain.Notice{
		TenderNumber:   string(c.TenderNumber),
		Reference:      string(c.Reference),
		Audience:       c.Audience,
		OfficeLocation: c.OfficeLocation,
		Email:          c.Email,
		Address:        c.Address,
		Province:       c.Province,
	}
}
