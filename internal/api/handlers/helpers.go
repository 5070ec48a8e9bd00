package handlers

import (
	"aid-delivery-sim/internal/api/dto"
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/platform/obs"
	"aid-delivery-sim/internal/runs"
	"aid-delivery-sim/internal/simulation"
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.FromContext(r.Context()).Error(err, "encode failed", "method", r.Method, "path", r.URL.Path)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeServiceError maps a service or repository error to a response.
// Unexpected errors are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		writeError(w, r, http.StatusNotFound, "run not found")
	case errors.Is(err, runs.ErrBadRequest), errors.Is(err, simulation.ErrInvalidParams):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, r, http.StatusServiceUnavailable, "request cancelled or timed out")
	default:
		obs.FromContext(r.Context()).Error(err, op+" failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func toSummaryResponse(s domain.RunSummary) dto.RunSummaryResponse {
	return dto.RunSummaryResponse{
		RunID:      s.RunID,
		Seed:       s.Seed,
		Scenario:   s.Scenario,
		Strategy:   s.Strategy,
		Ticks:      s.Ticks,
		Drivers:    s.Drivers,
		Bays:       s.Bays,
		Loads:      s.Loads,
		Delivered:  s.Delivered,
		Failed:     s.Failed,
		Pending:    s.Pending,
		Rounds:     s.Rounds,
		Breakdowns: s.Breakdowns,
		CreatedAt:  s.CreatedAt,
	}
}
