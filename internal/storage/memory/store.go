package memory

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/pkg/cmap"
)

var (
	// ErrNotInteger is returned when an arithmetic operation meets a value
	// that is not a base-10 64-bit integer.
	ErrNotInteger = errors.New("value is not an integer or out of range")

	// ErrOverflow is returned when an arithmetic operation would overflow.
	ErrOverflow = errors.New("increment or decrement would overflow")
)

// Condition restricts when Set writes.
type Condition int

const (
	// Always writes unconditionally.
	Always Condition = iota
	// IfAbsent writes only when the key does not exist (NX).
	IfAbsent
	// IfPresent writes only when the key exists (XX).
	IfPresent
)

// SetOptions controls Set.
type SetOptions struct {
	// ExpireAt is the absolute deadline for the new entry; zero means none.
	ExpireAt time.Time
	// KeepTTL retains the deadline of the entry being replaced.
	KeepTTL bool
	// Condition restricts the write.
	Condition Condition
}

// SetResult reports the outcome of Set.
type SetResult struct {
	// Stored is false when Condition prevented the write.
	Stored bool
	// Previous is the value that was replaced, if HadPrevious.
	Previous    []byte
	HadPrevious bool
}

// TTLState classifies the result of TTL.
type TTLState int

const (
	// KeyMissing means the key does not exist.
	KeyMissing TTLState = iota
	// NoExpiry means the key exists without a deadline.
	NoExpiry
	// HasExpiry means the key exists and the returned duration is meaningful.
	HasExpiry
)

// Stats is a point-in-time view of the keyspace.
type Stats struct {
	Keys         int
	ExpiredLazy  uint64
	ExpiredSwept uint64
}

// Store is the shared keyspace. It is safe for concurrent use.
type Store struct {
	data   *cmap.Map[*Entry]
	clock  Clock
	shards int

	expiredLazy  atomic.Uint64
	expiredSwept atomic.Uint64
}

// Option configures the Store.
type Option func(*Store)

// WithClock sets the clock used for expiry decisions.
func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithShards sets the shard count. It must be a power of two.
func WithShards(n int) Option {
	return func(s *Store) {
		s.shards = n
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:  SystemClock,
		shards: cmap.DefaultShardCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.data = cmap.NewWithShards[*Entry](s.shards)
	return s
}

// Get returns the value stored at key. An expired entry is reported absent
// and removed. The returned slice is shared and must not be modified.
func (s *Store) Get(key string) ([]byte, bool) {
	e, ok := s.live(key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// live returns the entry for key if it exists and has not expired.
func (s *Store) live(key string) (*Entry, bool) {
	e, ok := s.data.Get(key)
	if !ok {
		return nil, false
	}
	if e.Expired(s.clock.Now()) {
		s.removeExpired(key, e)
		return nil, false
	}
	return e, true
}

// removeExpired deletes key if it still holds the given expired entry.
func (s *Store) removeExpired(key string, seen *Entry) {
	s.data.Compute(key, func(cur *Entry, exists bool) (*Entry, cmap.Action) {
		if exists && cur == seen {
			s.expiredLazy.Add(1)
			return nil, cmap.Remove
		}
		return nil, cmap.Keep
	})
}

// Set stores value at key. The store takes ownership of value; the caller
// must not modify it afterwards.
func (s *Store) Set(key string, value []byte, opts SetOptions) SetResult {
	var res SetResult
	now := s.clock.Now()

	s.data.Compute(key, func(cur *Entry, exists bool) (*Entry, cmap.Action) {
		if exists && cur.Expired(now) {
			s.expiredLazy.Add(1)
			cur, exists = nil, false
		}
		if exists {
			res.Previous, res.HadPrevious = cur.Value, true
		}

		switch {
		case opts.Condition == IfAbsent && exists,
			opts.Condition == IfPresent && !exists:
			if cur == nil {
				// An expired entry was found and must still go.
				return nil, cmap.Remove
			}
			return nil, cmap.Keep
		}

		next := &Entry{Value: value, ExpireAt: opts.ExpireAt}
		if opts.KeepTTL && exists {
			next.ExpireAt = cur.ExpireAt
		}
		res.Stored = true
		return next, cmap.Store
	})

	return res
}

// Delete removes the given keys and returns how many existed.
func (s *Store) Delete(keys ...string) int {
	now := s.clock.Now()
	removed := 0
	for _, key := range keys {
		s.data.Compute(key, func(cur *Entry, exists bool) (*Entry, cmap.Action) {
			if !exists {
				return nil, cmap.Keep
			}
			if cur.Expired(now) {
				s.expiredLazy.Add(1)
			} else {
				removed++
			}
			return nil, cmap.Remove
		})
	}
	return removed
}

// Exists returns how many of the given keys exist. A key named twice is
// counted twice.
func (s *Store) Exists(keys ...string) int {
	n := 0
	for _, key := range keys {
		if _, ok := s.live(key); ok {
			n++
		}
	}
	return n
}

// ExpireAt sets the deadline of an existing key. A deadline that is not in
// the future deletes the key. It reports whether the key existed.
func (s *Store) ExpireAt(key string, at time.Time) bool {
	now := s.clock.Now()
	found := false

	s.data.Compute(key, func(cur *Entry, exists bool) (*Entry, cmap.Action) {
		if !exists {
			return nil, cmap.Keep
		}
		if cur.Expired(now) {
			s.expiredLazy.Add(1)
			return nil, cmap.Remove
		}
		found = true
		if !at.After(now) {
			return nil, cmap.Remove
		}
		return &Entry{Value: cur.Value, ExpireAt: at}, cmap.Store
	})

	return found
}

// Persist removes the deadline of key. It reports whether a deadline was removed.
func (s *Store) Persist(key string) bool {
	now := s.clock.Now()
	changed := false

	s.data.Compute(key, func(cur *Entry, exists bool) (*Entry, cmap.Action) {
		if !exists || !cur.HasExpiry() {
			return nil, cmap.Keep
		}
		if cur.Expired(now) {
			s.expiredLazy.Add(1)
			return nil, cmap.Remove
		}
		changed = true
		return &Entry{Value: cur.Value}, cmap.Store
	})

	return changed
}

// TTL returns the remaining time to live of key.
func (s *Store) TTL(key string) (time.Duration, TTLState) {
	e, ok := s.live(key)
	if !ok {
		return 0, KeyMissing
	}
	if !e.HasExpiry() {
		return 0, NoExpiry
	}
	return e.ExpireAt.Sub(s.clock.Now()), HasExpiry
}

// IncrBy adds delta to the integer stored at key and returns the result.
// A missing key counts as zero. The deadline of an existing key is kept.
func (s *Store) IncrBy(key string, delta int64) (int64, error) {
	now := s.clock.Now()
	var (
		result int64
		opErr  error
	)

	s.data.Compute(key, func(cur *Entry, exists bool) (*Entry, cmap.Action) {
		if exists && cur.Expired(now) {
			s.expiredLazy.Add(1)
			cur, exists = nil, false
		}

		var n int64
		var expireAt time.Time
		if exists {
			v, err := strconv.ParseInt(string(cur.Value), 10, 64)
			if err != nil {
				opErr = ErrNotInteger
				return nil, cmap.Keep
			}
			n, expireAt = v, cur.ExpireAt
		}

		if (delta > 0 && n > maxInt64-delta) || (delta < 0 && n < minInt64-delta) {
			opErr = ErrOverflow
			return nil, cmap.Keep
		}

		result = n + delta
		return &Entry{
			Value:    strconv.AppendInt(nil, result, 10),
			ExpireAt: expireAt,
		}, cmap.Store
	})

	return result, opErr
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)

// RemoveIfExpired deletes key if its deadline has passed. It is idempotent
// and reports whether it removed anything.
func (s *Store) RemoveIfExpired(key string) bool {
	now := s.clock.Now()
	removed := false

	s.data.Compute(key, func(cur *Entry, exists bool) (*Entry, cmap.Action) {
		if exists && cur.Expired(now) {
			removed = true
			return nil, cmap.Remove
		}
		return nil, cmap.Keep
	})

	if removed {
		s.expiredSwept.Add(1)
	}
	return removed
}

// SweepShard evicts expired entries from shard i, visiting at most budget
// entries (all of them if budget <= 0) while holding that shard's lock.
func (s *Store) SweepShard(i, budget int) (scanned, removed int) {
	now := s.clock.Now()
	scanned, removed = s.data.SweepShard(i, budget, func(_ string, e *Entry) bool {
		return e.Expired(now)
	})
	if removed > 0 {
		s.expiredSwept.Add(uint64(removed))
	}
	return scanned, removed
}

// Now returns the store's notion of the current time.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// ShardCount returns the number of shards SweepShard accepts.
func (s *Store) ShardCount() int {
	return s.data.ShardCount()
}

// Len returns the number of stored keys, including expired keys that have
// not been evicted yet.
func (s *Store) Len() int {
	return s.data.Count()
}

// Flush removes every key.
func (s *Store) Flush() {
	s.data.Clear()
}

// Stats returns keyspace statistics.
func (s *Store) Stats() Stats {
	return Stats{
		Keys:         s.data.Count(),
		ExpiredLazy:  s.expiredLazy.Load(),
		ExpiredSwept: s.expiredSwept.Load(),
	}
}
