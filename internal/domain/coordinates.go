package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Immutable planar coordinates in network units.
type Coordinates struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func FromPoint(p orb.Point) Coordinates { return Coordinates{X: p[0], Y: p[1]} }

func (c Coordinates) Point() orb.Point { return orb.Point{c.X, c.Y} }

// Straight-line distance between two coordinates.
func (c Coordinates) Distance(o Coordinates) float64 {
	return planar.Distance(c.Point(), o.Point())
}

// Return coordinates as [x, y] for JSON payloads.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.X, c.Y} }
