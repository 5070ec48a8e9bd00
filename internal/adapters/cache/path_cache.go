package cache

import (
	"aid-delivery-sim/internal/ports"
	"aid-delivery-sim/internal/roadnet"
	"slices"

	"github.com/jellydator/ttlcache/v3"
)

// Origin->destination key. Node ids are unique within one network, so a
// cache must never be shared between networks.
type pathKey struct {
	from, to int64
}

type cachedPath struct {
	edges []*roadnet.Edge
	ok    bool
}

// In-memory cache for shortest path results in front of another finder.
// Edge lengths never change during a run, so entries do not expire; the
// least recently used path is evicted once capacity is reached.
type PathCache struct {
	next  ports.PathFinder
	paths *ttlcache.Cache[pathKey, cachedPath]
}

func NewPathCache(next ports.PathFinder, capacity uint64) *PathCache {
	return &PathCache{
		next: next,
		paths: ttlcache.New[pathKey, cachedPath](
			ttlcache.WithTTL[pathKey, cachedPath](ttlcache.NoTTL),
			ttlcache.WithCapacity[pathKey, cachedPath](capacity),
		),
	}
}

// FindPath returns a cached result when there is one. Misses, including
// "no path", are cached too.
func (c *PathCache) FindPath(from, to *roadnet.Node) ([]*roadnet.Edge, bool) {
	if from == nil || to == nil {
		return c.next.FindPath(from, to)
	}

	key := pathKey{from: from.ID, to: to.ID}
	if item := c.paths.Get(key); item != nil {
		p := item.Value()
		return slices.Clone(p.edges), p.ok
	}

	edges, ok := c.next.FindPath(from, to)
	c.paths.Set(key, cachedPath{edges: slices.Clone(edges), ok: ok}, ttlcache.DefaultTTL)
	return edges, ok
}

// Hits and misses since the cache was created.
func (c *PathCache) Stats() (hits, misses uint64) {
	m := c.paths.Metrics()
	return m.Hits, m.Misses
}

func (c *PathCache) Len() int {
	return c.paths.Len()
}
