package roadnet

import (
	"math"

	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// AStarFinder answers shortest-path queries over a Network with gonum's A*
// and a straight-line heuristic. Edge lengths are never shorter than the
// distance between their endpoints, so the heuristic is admissible.
type AStarFinder struct {
	net *Network
}

func NewAStarFinder(net *Network) *AStarFinder {
	return &AStarFinder{net: net}
}

// FindPath returns the edges from one node to another in travel order. An
// empty, non-nil slice means from and to are the same node.
func (f *AStarFinder) FindPath(from, to *Node) ([]*Edge, bool) {
	if from == nil || to == nil {
		return nil, false
	}
	if from == to {
		return []*Edge{}, true
	}
	if f.net.Node(from.ID) != from || f.net.Node(to.ID) != to {
		return nil, false
	}

	h := func(x, y graph.Node) float64 {
		a, b := f.net.Node(x.ID()), f.net.Node(y.ID())
		if a == nil || b == nil {
			return 0
		}
		return planar.Distance(a.Point, b.Point)
	}

	shortest, _ := path.AStar(simple.Node(from.ID), simple.Node(to.ID), f.net.graph, h)
	nodes, weight := shortest.To(to.ID)
	if len(nodes) < 2 || math.IsInf(weight, 1) {
		return nil, false
	}

	edges := make([]*Edge, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		e := f.net.pairEdge(nodes[i-1].ID(), nodes[i].ID())
		if e == nil {
			return nil, false
		}
		edges = append(edges, e)
	}

	return edges, true
}

// PathLength sums the lengths of the given edges.
func PathLength(edges []*Edge) float64 {
	total := 0.0
	for _, e := range edges {
		total += e.Length
	}
	return total
}
