// Package sanral handles notices from the SANRAL tender portal.
package sanral

import (
	"fmt"

	"tender-writer/internal/domain"
	"tender-writer/internal/source"
)

type Message struct {
	source.Common
	Region         string `json:"region"`
	Location       string `json:"location"`
	Category       string `json:"category"`
	FullTextNotice string `json:"fullTextNotice"`
}

func (m *Message) SourceType() domain.SourceType { return domain.SourceSanral }

type Detail struct {
	domain.Notice
	Region     string
	Category   string
	FullNotice string
}

func (d Detail) Source() domain.SourceType { return domain.SourceSanral }
func (d Detail) Table() string             { return "sanral_tenders" }

func (d Detail) Columns() []string {
	return append(append([]string{}, domain.NoticeColumns...), "region", "category", "full_notice")
}

func (d Detail) Values() []any {
	return append(d.NoticeValues(), d.Region, d.Category, d.FullNotice)
}

func Handler() source.Handler {
	return source.Handler{
		Type:    domain.SourceSanral,
		Aliases: []string{"sanral", "sanrallambda", "sanralscraper"},
		New:     func() source.Variant { return &Message{} },
		Detail:  detail,
	}
}

func detail(v source.Variant) (domain.Detail, error) {
	m, ok := v.(*Message)
	if !ok {
		return nil, fmt.Errorf("sanral: unexpected variant %T", v)
	}
	region := m.Region
	if region == "" {
		region = m.Location
	}
	return Detail{
		Notice:     m.Notice(),
		Region:     region,
		Category:   m.Category,
		FullNotice: m.FullTextNotice,
	}, nil
}
