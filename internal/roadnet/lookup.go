package roadnet

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ClosestEdge returns the edge nearest to p within radius, or nil.
func (n *Network) ClosestEdge(p orb.Point, radius float64) *Edge {
	var best *Edge
	bestDist := inf

	for _, e := range n.edges {
		if !e.Line.Bound().Pad(radius).Contains(p) {
			continue
		}
		d := e.DistanceTo(p)
		if d <= radius && d < bestDist {
			bestDist = d
			best = e
		}
	}

	return best
}

// nearestEdge widens the search radius tenfold from the network resolution
// until some edge is found.
func (n *Network) nearestEdge(p orb.Point) *Edge {
	if len(n.edges) == 0 {
		return nil
	}

	for r := n.resolution; r < math.MaxFloat64; r *= 10 {
		if e := n.ClosestEdge(p, r); e != nil {
			return e
		}
	}

	return nil
}

// SnapToNetwork projects p onto the nearest edge.
func (n *Network) SnapToNetwork(p orb.Point) (orb.Point, bool) {
	e := n.nearestEdge(p)
	if e == nil {
		return orb.Point{}, false
	}
	return e.PointAt(e.Project(p)), true
}

// SnapToNode returns the endpoint of the nearest edge that is closest to p.
// Ties go to the edge's From node.
func (n *Network) SnapToNode(p orb.Point) *Node {
	e := n.nearestEdge(p)
	if e == nil {
		return nil
	}

	if planar.Distance(p, e.From.Point) <= planar.Distance(p, e.To.Point) {
		return e.From
	}
	return e.To
}
