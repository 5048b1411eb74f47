package batch

import (
	"tender-writer/internal/fault"
	"tender-writer/internal/queue"
)

// Outcome is where a message ended up after its batch.
type Outcome string

const (
	// Persisted messages were written and acknowledged.
	Persisted Outcome = "persisted"
	// DeadLettered messages were relocated and acknowledged.
	DeadLettered Outcome = "dead_lettered"
	// Retained messages stay on the source queue for redelivery.
	Retained Outcome = "retained"
)

type Result struct {
	Message  queue.Message
	Outcome  Outcome
	TenderID string

	// Category and Err describe why a message was not persisted.
	Category fault.Category
	Err      error

	// Deleted reports whether the acknowledgement went through.
	Deleted bool
}

type Report struct {
	Results []Result

	// DeadLetterErr is set when some dead letters were not accepted.
	DeadLetterErr error
	// DeleteErr is set when some acknowledgements were not accepted.
	DeleteErr error
}

func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}
