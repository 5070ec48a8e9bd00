package handlers

import (
	"aid-delivery-sim/internal/api/dto"
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/ports"
	"net/http"
	"strings"

	"github.com/jellydator/ttlcache/v3"
)

// RecordHandler exposes read-only access to stored runs.
type RecordHandler struct {
	Repo  ports.RecordRepository
	Cache *ttlcache.Cache[string, domain.RunSummary]
}

func runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "run id is required")
		return "", false
	}
	return id, true
}

func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	if h.Cache != nil {
		if item := h.Cache.Get(id); item != nil {
			writeJSON(w, r, http.StatusOK, toSummaryResponse(item.Value()))
			return
		}
	}

	sum, err := h.Repo.GetRun(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get run", err)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(id, sum, ttlcache.DefaultTTL)
	}
	writeJSON(w, r, http.StatusOK, toSummaryResponse(sum))
}

func (h *RecordHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	rounds, err := h.Repo.ListRounds(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "list rounds", err)
		return
	}

	res := dto.ListRoundsResponse{Rounds: make([]dto.RoundResponse, 0, len(rounds))}
	for _, rr := range rounds {
		res.Rounds = append(res.Rounds, dto.RoundResponse{
			DriverID:   rr.DriverID,
			Duration:   rr.Duration,
			Distance:   rr.Distance,
			FinishedAt: rr.FinishedAt,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Loads lists every load of the run. ?status= filters by status.
func (h *RecordHandler) Loads(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")

	loads, err := h.Repo.ListLoads(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "list loads", err)
		return
	}

	res := dto.ListLoadsResponse{Loads: make([]dto.LoadResponse, 0, len(loads))}
	for _, l := range loads {
		if status != "" && string(l.Status) != status {
			continue
		}
		history := make([]dto.LoadEventResponse, 0, len(l.History))
		for _, ev := range l.History {
			history = append(history, dto.LoadEventResponse{Tick: ev.Tick, Kind: string(ev.Kind), From: ev.From, To: ev.To})
		}
		res.Loads = append(res.Loads, dto.LoadResponse{
			LoadID:        l.ID,
			Ward:          l.Ward,
			Depot:         l.Depot,
			Status:        string(l.Status),
			Priority:      l.Priority,
			Vulnerability: l.Vulnerability,
			History:       history,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RecordHandler) Visits(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	visits, err := h.Repo.ListVisits(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "list visits", err)
		return
	}

	res := dto.ListVisitsResponse{Visits: make([]dto.WardVisitResponse, 0, len(visits))}
	for _, v := range visits {
		res.Visits = append(res.Visits, dto.WardVisitResponse{Ward: v.Ward, Visits: v.Visits})
	}
	writeJSON(w, r, http.StatusOK, res)
}
