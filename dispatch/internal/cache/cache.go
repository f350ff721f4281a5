// Package cache memoizes dispatch resolutions per (generic, argument classes).
//
// Entries are tagged with the generation current when their resolution began.
// InvalidateAll advances the generation and empties every shard; an entry whose
// tag is not the current generation is never returned, so a resolution computed
// against an older method table cannot leak past an invalidation.
package cache

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one call shape.
type Key struct {
	Generic string
	Classes []string
}

func (k Key) path() []string {
	path := make([]string, 0, len(k.Classes)+1)
	path = append(path, k.Generic)
	return append(path, k.Classes...)
}

// Stats counts cache traffic since construction.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Stale         uint64
	Invalidations uint64
	Generation    uint64
}

type entry[V any] struct {
	generation uint64
	value      V
}

type Cache[V any] struct {
	shards     []*trie[entry[V]]
	generation atomic.Uint64

	hits          atomic.Uint64
	misses        atomic.Uint64
	stale         atomic.Uint64
	invalidations atomic.Uint64
}

// New creates a cache with numShards independent tries (at least one).
func New[V any](numShards int) *Cache[V] {
	if numShards <= 0 {
		numShards = 1
	}
	shards := make([]*trie[entry[V]], numShards)
	for i := range shards {
		shards[i] = newTrie[entry[V]]()
	}
	return &Cache[V]{shards: shards}
}

// Generation must be read before the state a resolution depends on.
func (c *Cache[V]) Generation() uint64 {
	return c.generation.Load()
}

func (c *Cache[V]) Get(key Key) (V, bool) {
	var zero V
	e, ok := c.shardOf(key).Load(key.path())
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	if e.generation != c.generation.Load() {
		c.stale.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Put stores value computed under generation. It reports false, storing nothing,
// when the cache has been invalidated since.
func (c *Cache[V]) Put(key Key, value V, generation uint64) bool {
	if generation != c.generation.Load() {
		return false
	}
	c.shardOf(key).Store(key.path(), entry[V]{generation: generation, value: value})
	return true
}

func (c *Cache[V]) InvalidateAll() {
	c.generation.Add(1)
	c.invalidations.Add(1)
	for _, s := range c.shards {
		s.Reset()
	}
}

func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Stale:         c.stale.Load(),
		Invalidations: c.invalidations.Load(),
		Generation:    c.generation.Load(),
	}
}

func (c *Cache[V]) shardOf(key Key) *trie[entry[V]] {
	return c.shards[indexByHash(key.Generic, len(c.shards))]
}

func indexByHash(key string, numShards int) int {
	switch numShards {
	case 0:
		panic("number of shards cannot be 0")
	case 1:
		return 0
	default:
		return int(xxhash.Sum64String(key) % uint64(numShards))
	}
}
