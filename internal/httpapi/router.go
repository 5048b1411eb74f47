package httpapi

import (
	"log/slog"
	"net/http"
	"sync/atomic"
)

// NewMux wires the operational endpoints.
func NewMux(d Deps) *http.ServeMux {
	if d.DrainStatus == nil {
		d.DrainStatus = &atomic.Value{}
		d.DrainStatus.Store(DrainStatus{})
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	mux := http.NewServeMux()

	hh := HealthHandler{Store: d.Store}
	mux.HandleFunc("/healthz", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	mux.HandleFunc("/readyz", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Ready,
	}))

	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}

	dh := DrainHandler{DrainStatus: d.DrainStatus, RunDrain: d.RunDrain, Log: d.Log}
	mux.HandleFunc("/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Status,
	}))
	mux.HandleFunc("/drain/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: loopbackOnly(dh.Run),
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	th := TendersHandler{Store: d.Store}
	mux.HandleFunc("/tenders", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: th.Count,
	}))
	mux.HandleFunc("/tenders/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: th.GetByPath,
	}))

	return mux
}

// NewHandler is NewMux behind the standard middleware chain.
func NewHandler(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return Chain(NewMux(d), RequestID, Recover(log), AccessLog(log))
}
