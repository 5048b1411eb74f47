package fault

import (
	"errors"
	"fmt"
)

// Category classifies why a message could not be written.
type Category string

const (
	MalformedPayload            Category = "MalformedPayload"
	UnsupportedSource           Category = "UnsupportedSource"
	PersistenceFailure          Category = "PersistenceFailure"
	DeadLetterSubmissionFailure Category = "DeadLetterSubmissionFailure"
	DeleteFailure               Category = "DeleteFailure"
	UnexpectedFault             Category = "UnexpectedFault"
)

type Error struct {
	Category Category
	Op       string
	// Key is the routing key for UnsupportedSource.
	Key   string
	Stack string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Category == UnsupportedSource && e.Err == nil:
		return fmt.Sprintf("%s: unsupported source %q", e.Op, e.Key)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Category)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func Malformed(op string, err error) error {
	return &Error{Category: MalformedPayload, Op: op, Err: err}
}

func Unsupported(op, key string) error {
	return &Error{Category: UnsupportedSource, Op: op, Key: key}
}

func Persistence(op string, err error) error {
	return &Error{Category: PersistenceFailure, Op: op, Err: err}
}

func Panic(op string, v any, stack []byte) error {
	return &Error{Category: UnexpectedFault, Op: op, Err: fmt.Errorf("panic: %v", v), Stack: string(stack)}
}

// CategoryOf reports the category of the first *Error in err's chain.
// Unclassified errors count as persistence failures: everything past
// decoding and mapping happens inside the unit of work.
func CategoryOf(err error) Category {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Category
	}
	return PersistenceFailure
}

// StackOf returns the captured stack, if any.
func StackOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Stack
	}
	return ""
}
