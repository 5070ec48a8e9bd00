package handlers

import (
	"aid-delivery-sim/internal/api/dto"
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/ports"
	"aid-delivery-sim/internal/runs"
	"aid-delivery-sim/internal/scenario"
	"aid-delivery-sim/internal/services"
	"aid-delivery-sim/internal/simulation"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/jellydator/ttlcache/v3"
)

var scenarioName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type RunHandler struct {
	Service *runs.Service
	Repo    ports.RecordRepository
	// parameters a request starts from
	Defaults simulation.Params
	// directory of named YAML scenarios; empty disables named scenarios
	ScenarioDir string
	Cache       *ttlcache.Cache[string, domain.RunSummary]
}

// Create runs the requested simulation synchronously and returns the
// summaries of the runs it produced.
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.RunRequest

	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	svcReq, err := h.toServiceRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.Service.Run(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, r, "run simulation", err)
		return
	}

	res := dto.ListRunsResponse{Runs: make([]dto.RunSummaryResponse, 0, len(recs))}
	for _, rec := range recs {
		if h.Cache != nil {
			h.Cache.Set(rec.Summary.RunID, rec.Summary, ttlcache.DefaultTTL)
		}
		res.Runs = append(res.Runs, toSummaryResponse(rec.Summary))
	}

	writeJSON(w, r, http.StatusCreated, res)
}

func (h *RunHandler) toServiceRequest(req dto.RunRequest) (runs.Request, error) {
	p := h.Defaults

	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if req.Ticks != 0 {
		p.Ticks = req.Ticks
	}
	if req.Drivers != nil {
		p.Drivers = *req.Drivers
	}
	if req.Bays != 0 {
		p.Bays = req.Bays
	}
	if req.LoadsPerRound != 0 {
		p.LoadsPerRound = req.LoadsPerRound
	}
	if req.ProbFailedDelivery != nil {
		p.ProbFailedDelivery = *req.ProbFailedDelivery
	}
	if req.ProbBreakdown != nil {
		p.ProbBreakdown = *req.ProbBreakdown
	}
	if req.Strategy != "" {
		s, err := services.ParseBatchStrategy(req.Strategy)
		if err != nil {
			return runs.Request{}, errors.New("strategy must be one of fifo, distance, priority, vulnerability, random")
		}
		p.Strategy = s
	}
	if p.Drivers < 1 || p.Drivers > 200 {
		return runs.Request{}, errors.New("drivers must be between 1 and 200")
	}
	if p.Ticks > 10*simulation.DefaultParams().Ticks {
		return runs.Request{}, fmt.Errorf("ticks must be at most %d", 10*simulation.DefaultParams().Ticks)
	}
	if req.Replications < 0 || req.Replications > runs.MaxReplications {
		return runs.Request{}, fmt.Errorf("replications must be between 1 and %d", runs.MaxReplications)
	}

	out := runs.Request{Params: p, Replications: req.Replications}

	if req.Scenario != "" {
		if h.ScenarioDir == "" {
			return runs.Request{}, errors.New("named scenarios are not enabled")
		}
		if !scenarioName.MatchString(req.Scenario) {
			return runs.Request{}, errors.New("scenario name may only contain letters, digits, '-' and '_'")
		}
		out.ScenarioPath = filepath.Join(h.ScenarioDir, req.Scenario+".yaml")
	}
	if req.Grid != nil {
		out.Grid = scenario.GridConfig{
			Rows:          req.Grid.Rows,
			Cols:          req.Grid.Cols,
			Spacing:       req.Grid.Spacing,
			Depots:        req.Grid.Depots,
			Wards:         req.Grid.Wards,
			MaxHouseholds: req.Grid.MaxHouseholds,
		}
	}
	return out, nil
}

// List returns the most recent runs. ?limit= caps the count (default 50).
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	sums, err := h.Repo.ListRuns(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, "list runs", err)
		return
	}

	res := dto.ListRunsResponse{Runs: make([]dto.RunSummaryResponse, 0, len(sums))}
	for _, s := range sums {
		res.Runs = append(res.Runs, toSummaryResponse(s))
	}
	writeJSON(w, r, http.StatusOK, res)
}
