package domain

type Status string

const (
	StatusOpen   Status = "Open"
	StatusClosed Status = "Closed"
)
