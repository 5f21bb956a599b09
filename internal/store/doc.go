// Package store provides SQLite-backed durable storage for the values that
// storage steps write.
//
// A Store is a set of buckets. Each bucket is an independent key/value
// namespace and implements dom.Storage, so an app can be pointed at one
// with engine.WithStorage. The default bucket is the store itself.
//
// # Critical Patterns
//
// Logical time:
//   - Every write takes the next value of a per-store seq counter
//   - Listings order by seq ASC, key ASC COLLATE BINARY, never by wall time
//
// Values are opaque strings. Callers store canonical JSON (see
// ir.MarshalCanonical); the store never parses them.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
