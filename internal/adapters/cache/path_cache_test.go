package cache

import (
	"aid-delivery-sim/internal/roadnet"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFinder struct {
	next  *roadnet.AStarFinder
	calls int
}

func (f *countingFinder) FindPath(from, to *roadnet.Node) ([]*roadnet.Edge, bool) {
	f.calls++
	return f.next.FindPath(from, to)
}

// 1 - 2 - 3    4
func testNetwork(t *testing.T) *roadnet.Network {
	t.Helper()
	net := roadnet.NewNetwork(1)
	for i, x := range []float64{0, 100, 200, 900} {
		_, err := net.AddNode(int64(i+1), orb.Point{x, 0})
		require.NoError(t, err)
	}
	for _, e := range [][2]int64{{1, 2}, {2, 3}} {
		_, err := net.AddEdge(e[0], e[1], nil, true)
		require.NoError(t, err)
	}
	return net
}

func TestPathCacheRemembersResults(t *testing.T) {
	net := testNetwork(t)
	inner := &countingFinder{next: roadnet.NewAStarFinder(net)}
	c := NewPathCache(inner, 16)

	first, ok := c.FindPath(net.Node(1), net.Node(3))
	require.True(t, ok)
	require.Len(t, first, 2)

	// callers may modify what they get back
	first[0] = nil

	second, ok := c.FindPath(net.Node(1), net.Node(3))
	require.True(t, ok)
	assert.NotNil(t, second[0])
	assert.Equal(t, 200.0, roadnet.PathLength(second))
	assert.Equal(t, 1, inner.calls)

	_, ok = c.FindPath(net.Node(1), net.Node(4))
	assert.False(t, ok)
	_, ok = c.FindPath(net.Node(1), net.Node(4))
	assert.False(t, ok)
	assert.Equal(t, 2, inner.calls, "no path is cached too")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestPathCacheDirectionMatters(t *testing.T) {
	net := testNetwork(t)
	inner := &countingFinder{next: roadnet.NewAStarFinder(net)}
	c := NewPathCache(inner, 16)

	there, _ := c.FindPath(net.Node(1), net.Node(3))
	back, _ := c.FindPath(net.Node(3), net.Node(1))
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, there[0], back[1])
	assert.Equal(t, 2, c.Len())
}

func TestPathCacheEvictsAtCapacity(t *testing.T) {
	net := testNetwork(t)
	inner := &countingFinder{next: roadnet.NewAStarFinder(net)}
	c := NewPathCache(inner, 2)

	c.FindPath(net.Node(1), net.Node(2))
	c.FindPath(net.Node(1), net.Node(3))
	c.FindPath(net.Node(2), net.Node(3))
	assert.Equal(t, 2, c.Len())

	c.FindPath(net.Node(1), net.Node(2))
	assert.Equal(t, 4, inner.calls)
}

func TestPathCacheNilNodes(t *testing.T) {
	net := testNetwork(t)
	inner := &countingFinder{next: roadnet.NewAStarFinder(net)}
	c := NewPathCache(inner, 16)

	_, ok := c.FindPath(nil, net.Node(1))
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
