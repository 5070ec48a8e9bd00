package roadnet

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var inf = math.Inf(1)

// Occupant is anything that can be queued on an edge.
type Occupant interface {
	OccupantID() string
}

// Edge is an undirected road segment. Positions along it are measured as
// length from From (0) to To (Length).
type Edge struct {
	ID      int64
	From    *Node
	To      *Node
	Line    orb.LineString
	Length  float64
	Tracked bool

	// queue order: index 0 is the oldest entrant
	occupants []Occupant
}

func (e *Edge) String() string {
	return fmt.Sprintf("edge(%d:%d-%d)", e.ID, e.From.ID, e.To.ID)
}

// Has reports whether n is one of the edge's endpoints.
func (e *Edge) Has(n *Node) bool {
	return n != nil && (e.From == n || e.To == n)
}

// Other returns the endpoint opposite n, or nil when n is not an endpoint.
func (e *Edge) Other(n *Node) *Node {
	switch n {
	case e.From:
		return e.To
	case e.To:
		return e.From
	}
	return nil
}

// SharesNode reports whether the two edges have an endpoint in common.
func (e *Edge) SharesNode(o *Edge) bool {
	return o != nil && (o.Has(e.From) || o.Has(e.To))
}

// DistanceTo is the planar distance from p to the edge geometry.
func (e *Edge) DistanceTo(p orb.Point) float64 {
	return planar.DistanceFrom(e.Line, p)
}

// Enter appends o to the occupancy queue. Untracked edges ignore it.
func (e *Edge) Enter(o Occupant) bool {
	if !e.Tracked || e.IndexOf(o) >= 0 {
		return false
	}
	e.occupants = append(e.occupants, o)
	return true
}

// Leave removes o from the occupancy queue.
func (e *Edge) Leave(o Occupant) bool {
	i := e.IndexOf(o)
	if i < 0 {
		return false
	}
	e.occupants = append(e.occupants[:i], e.occupants[i+1:]...)
	return true
}

// IndexOf returns o's position in the occupancy queue, or -1.
func (e *Edge) IndexOf(o Occupant) int {
	for i, x := range e.occupants {
		if x == o {
			return i
		}
	}
	return -1
}

func (e *Edge) Occupancy() int { return len(e.occupants) }

// Occupants returns a copy of the occupancy queue.
func (e *Edge) Occupants() []Occupant {
	out := make([]Occupant, len(e.occupants))
	copy(out, e.occupants)
	return out
}

// LengthPerOccupant is the road space each occupant has; +Inf when empty.
func (e *Edge) LengthPerOccupant() float64 {
	if len(e.occupants) == 0 {
		return inf
	}
	return e.Length / float64(len(e.occupants))
}
