// Package memory provides the in-memory keyspace for respkv.
//
// The Store maps string keys to immutable entries (a byte value plus an
// optional absolute deadline) held in a sharded concurrent map. Every
// operation on a key runs under that key's shard lock, so concurrent writers
// to one key are serialized and readers never observe a half-written entry.
//
// Expiration:
//
//   - Lazy: every read path re-checks the deadline and treats an expired
//     entry as absent, removing it on the spot.
//   - Active: the Sweeper walks the shards on a fixed interval and evicts
//     expired entries nobody has read, bounding the memory they hold.
//
// The Sweeper only calls Store methods; it takes no private path around the
// shard locks.
package memory
