package domain

import "time"

// SourceType identifies the procurement portal a tender came from.
type SourceType string

const (
	SourceETender  SourceType = "eTenders"
	SourceEskom    SourceType = "Eskom"
	SourceTransnet SourceType = "Transnet"
	SourceSars     SourceType = "SARS"
	SourceSanral   SourceType = "SANRAL"
)

// NoClosingDate marks a tender without a known deadline. Stored as NULL.
var NoClosingDate = time.Time{}

type Tender struct {
	ID          string
	Title       string
	Description string
	Summary     string
	Source      SourceType

	PublishedDate time.Time
	ClosingDate   time.Time
	Status        Status

	// TagNames are the raw names carried by the message. They become Tags
	// once resolved inside a unit of work.
	TagNames       []string
	Tags           []Tag
	SupportingDocs []SupportingDoc

	Detail Detail
}

func (t *Tender) HasClosingDate() bool {
	return !t.ClosingDate.IsZero()
}

type SupportingDoc struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Notice holds the publication particulars every portal reports.
type Notice struct {
	TenderNumber   string
	Reference      string
	Audience       string
	OfficeLocation string
	Email          string
	Address        string
	Province       string
}

// NoticeColumns lists the Notice columns in the order NoticeValues returns them.
var NoticeColumns = []string{
	"tender_number", "reference", "audience", "office_location", "email", "address", "province",
}

func (n Notice) NoticeValues() []any {
	return []any{n.TenderNumber, n.Reference, n.Audience, n.OfficeLocation, n.Email, n.Address, n.Province}
}

// Detail is the source-specific sub-record stored next to a tender.
// Exactly one exists per tender and its Source matches Tender.Source.
type Detail interface {
	Source() SourceType
	Table() string
	Columns() []string
	Values() []any
}
