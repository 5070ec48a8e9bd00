// Package roadnet holds the road graph the simulation moves over: nodes,
// polyline edges with live occupancy, nearest-edge lookup and shortest paths.
package roadnet

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrUnknownNode   = errors.New("unknown node")
	ErrBadGeometry   = errors.New("edge geometry does not join its nodes")
)

// Node is a graph vertex with a stable identity for the whole run.
type Node struct {
	ID    int64
	Point orb.Point
}

func (n *Node) String() string {
	return fmt.Sprintf("node(%d)", n.ID)
}

// Network is an undirected road graph. It is built once and then only the
// edge occupancy lists change while a simulation runs.
type Network struct {
	resolution float64

	nodes     map[int64]*Node
	nodeOrder []*Node
	edges     []*Edge

	graph *simple.WeightedUndirectedGraph
	// cheapest edge per node pair, used to turn node paths back into edges
	pairs map[[2]int64]*Edge
}

// NewNetwork creates an empty network. resolution is the distance below
// which two points are treated as the same place and the starting radius
// of every nearest-edge search.
func NewNetwork(resolution float64) *Network {
	if resolution <= 0 {
		resolution = 1
	}
	return &Network{
		resolution: resolution,
		nodes:      make(map[int64]*Node),
		graph:      simple.NewWeightedUndirectedGraph(0, inf),
		pairs:      make(map[[2]int64]*Edge),
	}
}

func (n *Network) Resolution() float64 { return n.resolution }

// AddNode registers a node at p.
func (n *Network) AddNode(id int64, p orb.Point) (*Node, error) {
	if _, ok := n.nodes[id]; ok {
		return nil, fmt.Errorf("add node %d: %w", id, ErrDuplicateNode)
	}
	node := &Node{ID: id, Point: p}
	n.nodes[id] = node
	n.nodeOrder = append(n.nodeOrder, node)
	n.graph.AddNode(simple.Node(id))
	return node, nil
}

// AddEdge joins two existing nodes. A nil or empty line means a straight
// segment; otherwise the line must start at one node and end at the other.
func (n *Network) AddEdge(fromID, toID int64, line orb.LineString, tracked bool) (*Edge, error) {
	from, ok := n.nodes[fromID]
	if !ok {
		return nil, fmt.Errorf("add edge %d-%d: from %d: %w", fromID, toID, fromID, ErrUnknownNode)
	}
	to, ok := n.nodes[toID]
	if !ok {
		return nil, fmt.Errorf("add edge %d-%d: to %d: %w", fromID, toID, toID, ErrUnknownNode)
	}

	if len(line) < 2 {
		line = orb.LineString{from.Point, to.Point}
	}
	if planar.Distance(line[0], from.Point) > n.resolution ||
		planar.Distance(line[len(line)-1], to.Point) > n.resolution {
		return nil, fmt.Errorf("add edge %d-%d: %w", fromID, toID, ErrBadGeometry)
	}

	e := &Edge{
		ID:      int64(len(n.edges) + 1),
		From:    from,
		To:      to,
		Line:    line,
		Length:  planar.Length(line),
		Tracked: tracked,
	}
	n.edges = append(n.edges, e)

	// gonum's simple graphs reject self loops; they never shorten a path anyway.
	if fromID == toID {
		return e, nil
	}

	key := pairKey(fromID, toID)
	if prev, ok := n.pairs[key]; !ok || e.Length < prev.Length {
		n.pairs[key] = e
		n.graph.SetWeightedEdge(n.graph.NewWeightedEdge(simple.Node(fromID), simple.Node(toID), e.Length))
	}

	return e, nil
}

// Node returns the node with the given id, or nil.
func (n *Network) Node(id int64) *Node { return n.nodes[id] }

// Nodes returns nodes in insertion order.
func (n *Network) Nodes() []*Node { return n.nodeOrder }

// Edges returns edges in insertion order.
func (n *Network) Edges() []*Edge { return n.edges }

func (n *Network) pairEdge(a, b int64) *Edge {
	return n.pairs[pairKey(a, b)]
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}
