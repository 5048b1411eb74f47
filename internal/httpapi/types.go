package httpapi

import (
	"sync/atomic"
	"time"

	"tender-writer/internal/consumer"
)

type DrainStatus struct {
	LastRunAt string            `json:"last_run_at"`
	LastOkAt  string            `json:"last_ok_at"`
	LastError string            `json:"last_error"`
	Running   bool              `json:"running"`
	Last      *consumer.Summary `json:"last,omitempty"`
}

type TenderView struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Summary       string            `json:"summary"`
	Source        string            `json:"source"`
	Status        string            `json:"status"`
	PublishedDate time.Time         `json:"published_date"`
	ClosingDate   *time.Time        `json:"closing_date"`
	Tags          []string          `json:"tags"`
	Documents     []DocumentView    `json:"supporting_docs"`
	Detail        map[string]string `json:"detail,omitempty"`
}

type DocumentView struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MarkRunning records the start of a drain in v.
func MarkRunning(v *atomic.Value, at time.Time) {
	st, _ := v.Load().(DrainStatus)
	st.Running = true
	st.LastRunAt = at.UTC().Format(time.RFC3339)
	v.Store(st)
}

// MarkFinished records the end of a drain in v.
func MarkFinished(v *atomic.Value, sum consumer.Summary, err error, at time.Time) {
	st, _ := v.Load().(DrainStatus)
	st.Running = false
	st.Last = &sum
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = at.UTC().Format(time.RFC3339)
	}
	v.Store(st)
}
