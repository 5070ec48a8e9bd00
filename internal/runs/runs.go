// Package runs executes simulations on request and keeps their records.
package runs

import (
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/platform/metrics"
	"aid-delivery-sim/internal/platform/obs"
	"aid-delivery-sim/internal/ports"
	"aid-delivery-sim/internal/scenario"
	"aid-delivery-sim/internal/simulation"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const MaxReplications = 64

var ErrBadRequest = errors.New("bad run request")

// Request names what to simulate. Without a scenario path a grid is
// generated from Grid.
type Request struct {
	Params       simulation.Params
	ScenarioPath string
	Grid         scenario.GridConfig
	// number of runs with consecutive seeds starting at Params.Seed
	Replications int
}

// Service runs simulations and stores their records. A nil repository
// keeps nothing.
type Service struct {
	repo        ports.RecordRepository
	parallelism int
	now         func() time.Time
}

func NewService(repo ports.RecordRepository, parallelism int) *Service {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Service{repo: repo, parallelism: parallelism, now: time.Now}
}

// Scenario resolves the request into the scenario to run.
func (s *Service) Scenario(req Request) (*scenario.Scenario, error) {
	if req.ScenarioPath != "" {
		sc, err := scenario.Load(req.ScenarioPath, req.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		return sc, nil
	}

	grid := req.Grid
	if grid == (scenario.GridConfig{}) {
		grid = scenario.DefaultGrid()
	}
	sc, err := scenario.Grid(grid, req.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return sc, nil
}

// Run resolves the request and executes it, once or as replications.
func (s *Service) Run(ctx context.Context, req Request) (_ []domain.RunRecords, err error) {
	defer obs.Time(ctx, "runs.Run")(&err)

	if req.Replications > MaxReplications {
		return nil, fmt.Errorf("%w: %d replications, at most %d", ErrBadRequest, req.Replications, MaxReplications)
	}

	sc, err := s.Scenario(req)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	if req.Replications <= 1 {
		rec, err := s.Execute(ctx, sc)
		if err != nil {
			return nil, err
		}
		return []domain.RunRecords{rec}, nil
	}
	return s.Replicate(ctx, sc, req.Replications)
}

// Execute runs sc to the end and stores the records under a fresh run id.
func (s *Service) Execute(ctx context.Context, sc *scenario.Scenario) (_ domain.RunRecords, err error) {
	defer obs.Time(ctx, "runs.Execute")(&err)
	defer func() { metrics.RecordRun(err) }()

	runID := uuid.NewString()
	logger := obs.FromContext(ctx).WithValues("run_id", runID, "seed", sc.Params.Seed)

	w, err := sc.Build(logger)
	if err != nil {
		return domain.RunRecords{}, fmt.Errorf("execute: %w", err)
	}
	if err := w.Run(ctx); err != nil {
		return domain.RunRecords{}, fmt.Errorf("execute %s: %w", runID, err)
	}

	rec := w.Finish()
	rec.Summary.RunID = runID
	rec.Summary.Scenario = sc.Name
	rec.Summary.CreatedAt = s.now().UTC()

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, rec); err != nil {
			return rec, fmt.Errorf("execute %s: %w", runID, err)
		}
	}

	logger.Info("run finished",
		"delivered", rec.Summary.Delivered,
		"failed", rec.Summary.Failed,
		"pending", rec.Summary.Pending,
		"rounds", rec.Summary.Rounds,
	)
	return rec, nil
}

// Replicate runs n copies of sc with seeds Seed, Seed+1, ... at most
// parallelism at a time. Results are in seed order. The first failure
// cancels the runs still going.
func (s *Service) Replicate(ctx context.Context, sc *scenario.Scenario, n int) (_ []domain.RunRecords, err error) {
	defer obs.Time(ctx, "runs.Replicate")(&err)

	out := make([]domain.RunRecords, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i := 0; i < n; i++ {
		rep := *sc
		rep.Params.Seed = sc.Params.Seed + int64(i)

		g.Go(func() error {
			rec, err := s.Execute(gctx, &rep)
			if err != nil {
				return fmt.Errorf("replicate: seed %d: %w", rep.Params.Seed, err)
			}
			out[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
