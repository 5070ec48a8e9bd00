// Package movement moves entities along the road network: position on an
// edge, congestion-aware advancing and route planning toward a point.
package movement

import (
	"aid-delivery-sim/internal/ports"
	"aid-delivery-sim/internal/roadnet"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	ErrNoRoute              = errors.New("no active route")
	ErrNoPath               = errors.New("no path to destination")
	ErrNoNearbyEdge         = errors.New("no edge near point")
	ErrInconsistentPosition = errors.New("current edge does not contain current node")
	ErrGoalEdgeDisconnected = errors.New("goal edge is not connected to the path")
	ErrDisconnectedRoute    = errors.New("next edge does not join the current node")
)

// Route is what is left to traverse: the next edge first, plus an optional
// goal point part way along the last edge.
type Route struct {
	Edges []*roadnet.Edge
	Goal  *orb.Point
	// distance to travel from where the route was planned
	Planned float64
}

// Length is the total length of the remaining edges.
func (r *Route) Length() float64 {
	if r == nil {
		return 0
	}
	return roadnet.PathLength(r.Edges)
}

// Traveller is a position on the network. Index is the length along Edge
// measured from Edge.From, kept within [StartIndex, EndIndex]. Node is the
// endpoint the traveller is heading toward, or standing on.
type Traveller struct {
	ID string

	Edge       *roadnet.Edge
	Node       *roadnet.Node
	Index      float64
	StartIndex float64
	EndIndex   float64
	Direction  int
	Location   orb.Point

	// nominal speed, in length per unit of time
	Speed float64

	net        ports.Network
	finder     ports.PathFinder
	congestion Congestion
	route      *Route
}

// NewTraveller places a traveller on the edge nearest at. The point must be
// within the network resolution of some edge.
func NewTraveller(
	id string,
	at orb.Point,
	speed float64,
	net ports.Network,
	finder ports.PathFinder,
	congestion Congestion,
) (*Traveller, error) {
	e := net.ClosestEdge(at, net.Resolution())
	if e == nil {
		return nil, fmt.Errorf("new traveller %s at %v: %w", id, at, ErrNoNearbyEdge)
	}

	node := e.To
	if planar.Distance(e.From.Point, at) <= planar.Distance(e.To.Point, at) {
		node = e.From
	}

	t := &Traveller{
		ID:         id,
		Edge:       e,
		Node:       node,
		Index:      e.Project(at),
		StartIndex: 0,
		EndIndex:   e.Length,
		Speed:      speed,
		net:        net,
		finder:     finder,
		congestion: congestion,
	}
	t.faceNode()
	t.Location = e.PointAt(t.Index)
	return t, nil
}

func (t *Traveller) OccupantID() string { return t.ID }

func (t *Traveller) HasRoute() bool { return t.route != nil }

// Route returns the remaining route, or nil.
func (t *Traveller) Route() *Route { return t.route }

// RouteLength is the distance the current route covers from where it was
// planned, including the rest of the starting edge and only the part of
// the last edge up to the goal.
func (t *Traveller) RouteLength() float64 {
	if t.route == nil {
		return 0
	}
	return t.route.Planned
}

// ClearRoute drops the route and releases the current edge.
func (t *Traveller) ClearRoute() {
	if t.route == nil {
		return
	}
	t.route = nil
	if t.Edge != nil {
		t.Edge.Leave(t)
	}
}

// DistanceTo is the straight-line distance from the traveller to p.
func (t *Traveller) DistanceTo(p orb.Point) float64 {
	return planar.Distance(t.Location, p)
}

// Advance moves the traveller along its route for up to budget units of
// time and returns the time left over. Without a route, or when the route
// breaks connectivity, it returns -1 and an error; a broken route is dropped.
func (t *Traveller) Advance(budget float64) (float64, error) {
	if t.route == nil {
		return -1, ErrNoRoute
	}

	for budget > 0 && t.route != nil {
		if t.atBoundary() {
			if len(t.route.Edges) == 0 {
				t.ClearRoute()
				break
			}
			if err := t.enterNext(); err != nil {
				t.ClearRoute()
				return -1, err
			}
		}

		budget = t.travel(budget)

		if len(t.route.Edges) == 0 && t.atBoundary() {
			t.ClearRoute()
		}
	}

	if t.Edge != nil {
		t.Location = t.Edge.PointAt(t.Index)
	}
	return budget, nil
}

func (t *Traveller) atBoundary() bool {
	if t.Edge == nil {
		return true
	}
	if t.Direction > 0 {
		return t.Index >= t.EndIndex
	}
	return t.Index <= t.StartIndex
}

// enterNext pops the next edge of the route and orients the traveller on it.
func (t *Traveller) enterNext() error {
	next := t.route.Edges[0]
	t.route.Edges = t.route.Edges[1:]

	if next != t.Edge {
		if !next.Has(t.Node) {
			return fmt.Errorf("traveller %s: enter %v from %v: %w", t.ID, next, t.Node, ErrDisconnectedRoute)
		}
		entry := t.Node
		if t.Edge != nil {
			t.Edge.Leave(t)
		}
		t.Edge = next
		t.Node = next.Other(entry)
		t.Index = next.IndexAt(entry)
		next.Enter(t)
	}

	t.StartIndex, t.EndIndex = 0, t.Edge.Length

	if len(t.route.Edges) == 0 && t.route.Goal != nil {
		g := t.Edge.Project(*t.route.Goal)
		if g >= t.Index {
			t.Node = t.Edge.To
			t.EndIndex = g
		} else {
			t.Node = t.Edge.From
			t.StartIndex = g
		}
	}

	t.faceNode()
	t.Index = clamp(t.Index, t.StartIndex, t.EndIndex)
	return nil
}

// travel moves along the current edge and returns the unused time.
func (t *Traveller) travel(budget float64) float64 {
	speed := t.congestion.EffectiveSpeed(t.Edge, t, t.Speed)

	proposed := t.Index + budget*speed*float64(t.Direction)
	left := 0.0
	if t.Direction < 0 && proposed < t.StartIndex {
		left = (t.StartIndex - proposed) / speed
		proposed = t.StartIndex
	} else if t.Direction > 0 && proposed > t.EndIndex {
		left = (proposed - t.EndIndex) / speed
		proposed = t.EndIndex
	}
	t.Index = proposed

	if len(t.route.Edges) == 0 && t.route.Goal != nil {
		g := t.Edge.Project(*t.route.Goal)
		if (t.Direction > 0 && g <= t.Index) || (t.Direction < 0 && g >= t.Index) {
			t.Index = g
			t.StartIndex, t.EndIndex = g, g
			left = 0
		}
	}

	t.Location = t.Edge.PointAt(t.Index)
	return left
}

func (t *Traveller) faceNode() {
	if t.Node == t.Edge.To {
		t.Direction = 1
	} else {
		t.Direction = -1
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
