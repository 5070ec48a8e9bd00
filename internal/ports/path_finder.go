package ports

import (
	"aid-delivery-sim/internal/roadnet"

	"github.com/paulmach/orb"
)

// Contract for the road network lookups a moving entity needs.
type Network interface {
	// Distance below which two points count as the same place.
	Resolution() float64
	// Nearest edge to p within radius, or nil.
	ClosestEdge(p orb.Point, radius float64) *roadnet.Edge
	// Project p onto the nearest edge, widening the search as needed.
	SnapToNetwork(p orb.Point) (orb.Point, bool)
	// Nearest node reachable by snapping p to an edge.
	SnapToNode(p orb.Point) *roadnet.Node
}

// Contract for shortest path queries between two nodes.
type PathFinder interface {
	// Return the edges to traverse in order, or false when no path exists.
	FindPath(from, to *roadnet.Node) ([]*roadnet.Edge, bool)
}
