// Package scenario describes the ground a run plays out on: the road
// network, the depots and the wards that need aid. Scenarios come from YAML
// files or are generated as a regular grid.
package scenario

import (
	"aid-delivery-sim/internal/adapters/cache"
	"aid-delivery-sim/internal/roadnet"
	"aid-delivery-sim/internal/simulation"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// paths remembered per world
const pathCacheSize = 4096

var (
	ErrEmptyScenario = errors.New("scenario has no roads")
	ErrNoDepots      = errors.New("scenario has no depots")
)

type Node struct {
	ID int64   `yaml:"id" json:"id"`
	X  float64 `yaml:"x" json:"x"`
	Y  float64 `yaml:"y" json:"y"`
}

// Edge is a road between two nodes. Line, when given, is the full geometry
// including both end points. Depot connectors are marked untracked so they
// never congest.
type Edge struct {
	From      int64        `yaml:"from" json:"from"`
	To        int64        `yaml:"to" json:"to"`
	Line      [][2]float64 `yaml:"line,omitempty" json:"line,omitempty"`
	Untracked bool         `yaml:"untracked,omitempty" json:"untracked,omitempty"`
}

type Depot struct {
	Name string  `yaml:"name" json:"name"`
	X    float64 `yaml:"x" json:"x"`
	Y    float64 `yaml:"y" json:"y"`
	Bays int     `yaml:"bays,omitempty" json:"bays,omitempty"`
}

type Ward struct {
	Name          string  `yaml:"name" json:"name"`
	X             float64 `yaml:"x" json:"x"`
	Y             float64 `yaml:"y" json:"y"`
	Households    int     `yaml:"households" json:"households"`
	Priority      int     `yaml:"priority,omitempty" json:"priority,omitempty"`
	Vulnerability int     `yaml:"vulnerability,omitempty" json:"vulnerability,omitempty"`
}

// Scenario is everything needed to set up a run. Params start from the
// caller's base and are overridden by whatever the file sets.
type Scenario struct {
	Name   string            `yaml:"name" json:"name"`
	Params simulation.Params `yaml:"params" json:"params"`
	Nodes  []Node            `yaml:"nodes" json:"nodes"`
	Edges  []Edge            `yaml:"edges" json:"edges"`
	Depots []Depot           `yaml:"depots" json:"depots"`
	Wards  []Ward            `yaml:"wards" json:"wards"`
}

// Load reads a scenario file.
func Load(path string, base simulation.Params) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	defer f.Close()

	s, err := Parse(f, base)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML scenario. Unknown keys are an error.
func Parse(r io.Reader, base simulation.Params) (*Scenario, error) {
	s := &Scenario{Params: base}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scenario) Validate() error {
	if len(s.Nodes) == 0 || len(s.Edges) == 0 {
		return ErrEmptyScenario
	}
	if len(s.Depots) == 0 {
		return ErrNoDepots
	}
	return s.Params.Validate()
}

// Network builds the road network at the scenario's resolution.
func (s *Scenario) Network() (*roadnet.Network, error) {
	net := roadnet.NewNetwork(s.Params.Resolution)
	for _, n := range s.Nodes {
		if _, err := net.AddNode(n.ID, orb.Point{n.X, n.Y}); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}
	for _, e := range s.Edges {
		var line orb.LineString
		for _, p := range e.Line {
			line = append(line, orb.Point{p[0], p[1]})
		}
		if _, err := net.AddEdge(e.From, e.To, line, !e.Untracked); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}
	return net, nil
}

// Build creates a world with the scenario's depots and wards in place. The
// world is not started.
func (s *Scenario) Build(logger logr.Logger) (*simulation.World, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("build scenario %s: %w", s.Name, err)
	}
	net, err := s.Network()
	if err != nil {
		return nil, err
	}

	w, err := simulation.NewWorld(s.Params, net, logger.WithValues("scenario", s.Name))
	if err != nil {
		return nil, fmt.Errorf("build scenario %s: %w", s.Name, err)
	}
	w.Finder = cache.NewPathCache(roadnet.NewAStarFinder(net), pathCacheSize)

	for _, d := range s.Depots {
		if _, err := w.AddDepot(d.Name, orb.Point{d.X, d.Y}, d.Bays); err != nil {
			return nil, fmt.Errorf("build scenario %s: %w", s.Name, err)
		}
	}
	for _, ward := range s.Wards {
		_, err := w.AddWard(simulation.Ward{
			Name:          ward.Name,
			Center:        orb.Point{ward.X, ward.Y},
			Households:    ward.Households,
			Priority:      ward.Priority,
			Vulnerability: ward.Vulnerability,
		})
		if err != nil {
			return nil, fmt.Errorf("build scenario %s: %w", s.Name, err)
		}
	}
	return w, nil
}

// Households is the total number of households across all wards.
func (s *Scenario) Households() int {
	n := 0
	for _, w := range s.Wards {
		n += w.Households
	}
	return n
}
