package cmap

// Action tells Compute what to do with the key once the callback returns.
type Action int

const (
	// Keep leaves the map unchanged.
	Keep Action = iota
	// Store writes the returned value.
	Store
	// Remove deletes the key.
	Remove
)

// Compute runs fn with the shard lock for key held and applies the returned
// action. fn receives the current value and whether the key exists. This is
// the building block for read-modify-write operations that must be atomic
// per key.
func (m *Map[V]) Compute(key string, fn func(value V, exists bool) (V, Action)) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	existing, exists := shard.items[key]
	newValue, action := fn(existing, exists)
	switch action {
	case Store:
		shard.items[key] = newValue
	case Remove:
		if exists {
			delete(shard.items, key)
		}
	}
}

// SweepShard visits at most limit entries of shard i under its write lock
// and deletes those for which remove returns true. A limit <= 0 visits the
// whole shard. Go map iteration order is random, so repeated bounded sweeps
// sample different entries. It returns how many entries were visited and
// removed.
func (m *Map[V]) SweepShard(i, limit int, remove func(key string, value V) bool) (scanned, removed int) {
	if i < 0 || i >= len(m.shards) {
		return 0, 0
	}
	shard := m.shards[i]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	for k, v := range shard.items {
		if limit > 0 && scanned >= limit {
			break
		}
		scanned++
		if remove(k, v) {
			delete(shard.items, k)
			removed++
		}
	}
	return scanned, removed
}
