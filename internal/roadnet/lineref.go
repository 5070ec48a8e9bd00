package roadnet

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Project returns the length index of the point on the edge closest to p.
// The first segment wins when two are equally close.
func (e *Edge) Project(p orb.Point) float64 {
	best := inf
	index := 0.0
	walked := 0.0

	for i := 1; i < len(e.Line); i++ {
		a, b := e.Line[i-1], e.Line[i]
		segLen := planar.Distance(a, b)

		t := 0.0
		if segLen > 0 {
			dx, dy := b[0]-a[0], b[1]-a[1]
			t = ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / (segLen * segLen)
			t = clamp(t, 0, 1)
		}
		q := orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}

		if d := planar.Distance(p, q); d < best {
			best = d
			index = walked + t*segLen
		}
		walked += segLen
	}

	return clamp(index, 0, e.Length)
}

// PointAt interpolates the point at the given length index, clamped to the edge.
func (e *Edge) PointAt(index float64) orb.Point {
	if len(e.Line) == 0 {
		return orb.Point{}
	}
	if index <= 0 {
		return e.Line[0]
	}

	walked := 0.0
	for i := 1; i < len(e.Line); i++ {
		a, b := e.Line[i-1], e.Line[i]
		segLen := planar.Distance(a, b)
		if walked+segLen >= index && segLen > 0 {
			t := (index - walked) / segLen
			return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
		}
		walked += segLen
	}

	return e.Line[len(e.Line)-1]
}

// IndexAt returns the length index of an endpoint: 0 for From, Length for To.
func (e *Edge) IndexAt(n *Node) float64 {
	if n == e.To {
		return e.Length
	}
	return 0
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
