package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
)

type DrainHandler struct {
	DrainStatus *atomic.Value // httpapi.DrainStatus
	RunDrain    func(ctx context.Context) error
	Log         *slog.Logger
}

func (h DrainHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, _ := h.DrainStatus.Load().(DrainStatus)
	writeJSON(w, st)
}

// Run starts a drain in the background and answers immediately.
func (h DrainHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.RunDrain == nil {
		WriteError(w, r, http.StatusNotFound, "not_enabled", "manual drains are disabled")
		return
	}
	st, _ := h.DrainStatus.Load().(DrainStatus)
	if st.Running {
		WriteJSON(w, http.StatusConflict, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.RunDrain(ctx); err != nil {
			h.Log.Error("manual drain failed", "request_id", RequestIDFrom(ctx), "err", err)
		}
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
