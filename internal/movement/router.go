package movement

import (
	"aid-delivery-sim/internal/roadnet"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// HeadFor plans a route from the current position to the network location
// nearest dest. On failure the traveller keeps its previous route.
func (t *Traveller) HeadFor(dest orb.Point) error {
	if t.Edge == nil || !t.Edge.Has(t.Node) {
		return fmt.Errorf("head for %v: traveller %s on %v at %v: %w", dest, t.ID, t.Edge, t.Node, ErrInconsistentPosition)
	}

	res := t.net.Resolution()

	target, ok := t.net.SnapToNetwork(dest)
	if !ok {
		return fmt.Errorf("head for %v: snap destination: %w", dest, ErrNoNearbyEdge)
	}
	destNode := t.net.SnapToNode(target)
	if destNode == nil {
		return fmt.Errorf("head for %v: snap destination node: %w", dest, ErrNoNearbyEdge)
	}

	var goal *orb.Point
	if planar.Distance(destNode.Point, target) > res {
		g := target
		goal = &g
	}

	path, ok := t.finder.FindPath(t.Node, destNode)
	if !ok {
		return fmt.Errorf("head for %v: from %v to %v: %w", dest, t.Node, destNode, ErrNoPath)
	}
	edges := append([]*roadnet.Edge(nil), path...)
	node := t.Node

	// already there
	if len(edges) == 0 && goal == nil && planar.Distance(target, t.Location) <= res {
		t.ClearRoute()
		return nil
	}

	// a path that starts by going back over the current edge means turning around
	if len(edges) > 0 && edges[0] == t.Edge {
		edges = edges[1:]
		node = t.Edge.Other(node)
	}

	if goal != nil {
		goalEdge := t.net.ClosestEdge(*goal, res)
		if goalEdge == nil {
			return fmt.Errorf("head for %v: goal %v: %w", dest, *goal, ErrNoNearbyEdge)
		}

		last := t.Edge
		if len(edges) > 0 {
			last = edges[len(edges)-1]
		}
		if last != goalEdge && last.DistanceTo(*goal) > res {
			if !last.SharesNode(goalEdge) {
				return fmt.Errorf("head for %v: goal on %v after %v: %w", dest, goalEdge, last, ErrGoalEdgeDisconnected)
			}
			edges = append(edges, goalEdge)
		}
	}

	planned := t.plannedLength(node, edges, goal)

	t.Node = node
	t.faceNode()
	t.StartIndex, t.EndIndex = 0, t.Edge.Length

	// With nothing left to pop the traveller still has to cover its own edge,
	// so queue it and collapse the bounds to start from a boundary.
	if len(edges) == 0 {
		edges = []*roadnet.Edge{t.Edge}
		t.StartIndex, t.EndIndex = t.Index, t.Index
	}

	t.route = &Route{Edges: edges, Goal: goal, Planned: planned}
	t.Edge.Enter(t)
	return nil
}

// plannedLength measures a route that starts by heading for node along the
// current edge and then follows edges.
func (t *Traveller) plannedLength(node *roadnet.Node, edges []*roadnet.Edge, goal *orb.Point) float64 {
	if len(edges) == 0 {
		if goal != nil {
			return math.Abs(t.Edge.Project(*goal) - t.Index)
		}
		return math.Abs(t.Edge.IndexAt(node) - t.Index)
	}

	total := math.Abs(t.Edge.IndexAt(node) - t.Index)
	cur := node
	for i, e := range edges {
		entry := cur
		if i == len(edges)-1 && goal != nil {
			total += math.Abs(e.Project(*goal) - e.IndexAt(entry))
			break
		}
		total += e.Length
		if cur = e.Other(entry); cur == nil {
			break
		}
	}
	return total
}

// RouteStatus maps a HeadFor result to 1 for success, -1 when no path was
// found and -2 for any problem with the destination or current position.
func RouteStatus(err error) int {
	switch {
	case err == nil:
		return 1
	case errors.Is(err, ErrNoPath):
		return -1
	default:
		return -2
	}
}
