package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"tender-writer/internal/domain"
	"tender-writer/internal/events"
)

// TenderReader is the read side of the store the API needs.
type TenderReader interface {
	Ping(ctx context.Context) error
	Tender(ctx context.Context, id string) (*domain.Tender, error)
	CountTenders(ctx context.Context) (int, error)
}

type Deps struct {
	Store TenderReader
	Hub   *events.Hub

	// Metrics serves the Prometheus exposition; nil hides /metrics.
	Metrics http.Handler

	DrainStatus *atomic.Value // stores httpapi.DrainStatus

	// RunDrain starts an out-of-schedule drain; nil disables POST /drain/run.
	RunDrain func(ctx context.Context) error

	Log *slog.Logger
}
