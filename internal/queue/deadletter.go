package queue

import (
	"encoding/json"
	"time"
)

// Envelope is the dead-letter document. Field names are part of the wire
// contract with downstream tooling.
type Envelope struct {
	OriginalMessageBody string    `json:"originalMessageBody"`
	RoutingKey          string    `json:"routingKey"`
	ErrorMessage        string    `json:"errorMessage"`
	ErrorType           string    `json:"errorType"`
	StackTrace          *string   `json:"stackTrace"`
	ProcessedBy         string    `json:"processedBy"`
	Timestamp           time.Time `json:"timestamp"`
}

// DeadLetter pairs the failed delivery with its envelope.
type DeadLetter struct {
	Message  Message
	Envelope Envelope
}

func NewDeadLetter(msg Message, errType, errMsg, stack, processedBy string, at time.Time) DeadLetter {
	env := Envelope{
		OriginalMessageBody: msg.Body,
		RoutingKey:          msg.RoutingKey,
		ErrorMessage:        errMsg,
		ErrorType:           errType,
		ProcessedBy:         processedBy,
		Timestamp:           at.UTC(),
	}
	if stack != "" {
		env.StackTrace = &stack
	}
	return DeadLetter{Message: msg, Envelope: env}
}

func (d DeadLetter) Body() ([]byte, error) {
	return json.Marshal(d.Envelope)
}
