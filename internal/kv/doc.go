// Package kv provides small key/value storage for short-lived secrets.
//
// The registry keeps one-time magic-link tokens here. Values are opaque
// strings; expiry is checked by the caller against data inside the value,
// so a backend never has to evict on time. Redeeming a token uses Take,
// which reads and removes a key in one atomic step (GETDEL on Redis,
// DELETE ... RETURNING on SQL).
//
// Backends:
//
//   - Memory: a mutex-guarded map.
//   - SQLStore: a kv_entries table on the registry database.
//   - RedisStore: github.com/redis/go-redis/v9 with an optional retention
//     TTL that bounds storage of tokens nobody redeems.
package kv
