// Package eskom handles notices from the Eskom tender bulletin.
package eskom

import (
	"fmt"

	"tender-writer/internal/domain"
	"tender-writer/internal/source"
)

type Message struct {
	source.Common
	// Eskom reports the region under "location".
	Location     string `json:"location"`
	DivisionName string `json:"divisionName"`
	ContractType string `json:"contractType"`
}

func (m *Message) SourceType() domain.SourceType { return domain.SourceEskom }

type Detail struct {
	domain.Notice
	Region       string
	Division     string
	ContractType string
}

func (d Detail) Source() domain.SourceType { return domain.SourceEskom }
func (d Detail) Table() string             { return "eskom_tenders" }

func (d Detail) Columns() []string {
	return append(append([]string{}, domain.NoticeColumns...), "region", "division", "contract_type")
}

func (d Detail) Values() []any {
	return append(d.NoticeValues(), d.Region, d.Division, d.ContractType)
}

func Handler() source.Handler {
	return source.Handler{
		Type:    domain.SourceEskom,
		Aliases: []string{"eskom", "eskomlambda", "eskomscraper"},
		New:     func() source.Variant { return &Message{} },
		Detail:  detail,
	}
}

func detail(v source.Variant) (domain.Detail, error) {
	m, ok := v.(*Message)
	if !ok {
		return nil, fmt.Errorf("eskom: unexpected variant %T", v)
	}
	return Detail{
		Notice:       m.Notice(),
		Region:       m.Location,
		Division:     m.DivisionName,
		ContractType: m.ContractType,
	}, nil
}
