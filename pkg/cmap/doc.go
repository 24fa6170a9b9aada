// Package cmap provides a concurrent map keyed by string.
//
// Keys are spread over a power-of-two number of shards by their xxh3 hash.
// Each shard has its own RWMutex, so operations on keys in different shards
// never contend.
//
// Usage:
//
//	m := cmap.NewWithShards[*Entry](32)
//	m.Compute("key", func(cur *Entry, ok bool) (*Entry, cmap.Action) {
//		return e, cmap.Store
//	})
//	e, ok := m.Get("key")
//
// Get and Count take read locks; Compute, SweepShard and Clear take write
// locks. Callbacks passed to Compute and SweepShard run while the shard lock
// is held and must not call back into the same map.
package cmap
