// Package storage provides the durable key-value facility that backs the
// cache's persistence mirror.
//
// A Storage holds opaque string blobs under logical names. The cache writes
// its entire state as a single blob under one name, so implementations only
// need whole-value reads, writes, and removals:
//   - FileStorage keeps one JSON file per name in a directory and writes atomically
//   - MemoryStorage keeps blobs in a map and is used in tests and when
//     persistence is disabled
package storage
