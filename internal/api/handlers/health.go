package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler provides a liveness check that also reports whether the
// record store answers.
type HealthHandler struct {
	Store Pinger
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := map[string]string{"status": "ok"}
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.PingContext(ctx); err != nil {
			res["status"] = "degraded"
			res["store"] = "unavailable"
			writeJSON(w, r, http.StatusServiceUnavailable, res)
			return
		}
		res["store"] = "ok"
	}
	writeJSON(w, r, http.StatusOK, res)
}
