package api

import (
	"aid-delivery-sim/internal/api/handlers"
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/ports"
	"aid-delivery-sim/internal/runs"
	"aid-delivery-sim/internal/simulation"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are what the handlers need. Cache and Store may be nil.
type Deps struct {
	Repo        ports.RecordRepository
	Runs        *runs.Service
	Defaults    simulation.Params
	ScenarioDir string
	Cache       *ttlcache.Cache[string, domain.RunSummary]
	Store       handlers.Pinger
	Logger      logr.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Store: d.Store}
	runHandler := &handlers.RunHandler{
		Service:     d.Runs,
		Repo:        d.Repo,
		Defaults:    d.Defaults,
		ScenarioDir: d.ScenarioDir,
		Cache:       d.Cache,
	}
	records := &handlers.RecordHandler{Repo: d.Repo, Cache: d.Cache}

	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("POST /runs", runHandler.Create)
	mux.HandleFunc("GET /runs", runHandler.List)
	mux.HandleFunc("GET /runs/{id}", records.Get)
	mux.HandleFunc("GET /runs/{id}/rounds", records.Rounds)
	mux.HandleFunc("GET /runs/{id}/loads", records.Loads)
	mux.HandleFunc("GET /runs/{id}/visits", records.Visits)
	mux.Handle("GET /metrics", promhttp.Handler())

	return requestIDMiddleware(d.Logger, loggingMiddleware(mux))
}
