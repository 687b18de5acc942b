// Package cache provides an in-memory TTL cache with a soft capacity bound and
// a durable mirror, used to memoize read-heavy storefront REST data.
//
// Key features:
//   - Per-entry expiration with lazy removal on read (Get, Has, GetAs)
//   - Capacity eviction of the entry with the oldest creation time once
//     MaxItems distinct keys are held
//   - Whole-state persistence to a single blob in a storage.Storage after
//     every mutation, reloaded once at construction
//   - GetOrFetch helper that populates the cache from a producer on a miss
//
// Durable storage is best-effort. Read and write failures are logged and the
// cache keeps working from memory; a corrupted or foreign blob is treated as
// an empty cache. The only error a GetOrFetch caller observes from a failed
// fetch is the producer's own error, passed through unchanged.
//
// Concurrent GetOrFetch calls for the same cold key each run the producer and
// the last Set wins, unless the Manager was built WithCoalescing(true).
package cache
