package scenario

import (
	"aid-delivery-sim/internal/simulation"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var ErrBadGrid = errors.New("invalid grid")

// GridConfig describes a generated Manhattan-style street grid.
type GridConfig struct {
	Rows    int     `yaml:"rows" json:"rows"`
	Cols    int     `yaml:"cols" json:"cols"`
	Spacing float64 `yaml:"spacing" json:"spacing"`
	Depots  int     `yaml:"depots" json:"depots"`
	Wards   int     `yaml:"wards" json:"wards"`
	// wards get between 1 and MaxHouseholds households
	MaxHouseholds int `yaml:"max_households" json:"max_households"`
}

func DefaultGrid() GridConfig {
	return GridConfig{
		Rows:          6,
		Cols:          6,
		Spacing:       1000,
		Depots:        2,
		Wards:         12,
		MaxHouseholds: 120,
	}
}

// Grid generates a scenario. Depot and ward placement is drawn from
// params.Seed, so the same config and seed give the same scenario.
func Grid(cfg GridConfig, params simulation.Params) (*Scenario, error) {
	if cfg.Rows < 2 || cfg.Cols < 2 || cfg.Spacing <= 0 {
		return nil, fmt.Errorf("%w: need at least 2x2 nodes and a positive spacing", ErrBadGrid)
	}
	if cfg.Depots < 1 || cfg.Depots > cfg.Rows*cfg.Cols {
		return nil, fmt.Errorf("%w: %d depots on %d nodes", ErrBadGrid, cfg.Depots, cfg.Rows*cfg.Cols)
	}
	if cfg.MaxHouseholds < 1 {
		cfg.MaxHouseholds = 1
	}

	rng := rand.New(rand.NewSource(params.Seed))
	s := &Scenario{
		Name:   fmt.Sprintf("grid-%dx%d", cfg.Rows, cfg.Cols),
		Params: params,
	}

	id := func(r, c int) int64 { return int64(r*cfg.Cols + c + 1) }
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			s.Nodes = append(s.Nodes, Node{ID: id(r, c), X: float64(c) * cfg.Spacing, Y: float64(r) * cfg.Spacing})
		}
	}
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			if c+1 < cfg.Cols {
				s.Edges = append(s.Edges, Edge{From: id(r, c), To: id(r, c+1)})
			}
			if r+1 < cfg.Rows {
				s.Edges = append(s.Edges, Edge{From: id(r, c), To: id(r+1, c)})
			}
		}
	}

	for i, n := range rng.Perm(len(s.Nodes))[:cfg.Depots] {
		node := s.Nodes[n]
		s.Depots = append(s.Depots, Depot{Name: fmt.Sprintf("Depot %d", i+1), X: node.X, Y: node.Y})
	}

	// wards sit part way along a random street
	for i := 0; i < cfg.Wards; i++ {
		e := s.Edges[rng.Intn(len(s.Edges))]
		from, to := s.Nodes[e.From-1], s.Nodes[e.To-1]
		f := math.Round(rng.Float64()*10) / 10

		s.Wards = append(s.Wards, Ward{
			Name:          fmt.Sprintf("Ward %02d", i+1),
			X:             from.X + f*(to.X-from.X),
			Y:             from.Y + f*(to.Y-from.Y),
			Households:    rng.Intn(cfg.MaxHouseholds) + 1,
			Priority:      rng.Intn(3),
			Vulnerability: rng.Intn(5) + 1,
		})
	}

	return s, s.Validate()
}
