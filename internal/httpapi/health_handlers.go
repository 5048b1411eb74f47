package httpapi

import (
	"context"
	"net/http"
	"time"
)

type HealthHandler struct {
	Store TenderReader
}

// Health reports liveness only.
func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"ok": true})
}

// Ready pings the store.
func (h HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		WriteError(w, r, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}
