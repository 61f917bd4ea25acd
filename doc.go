// Package tinylfu implements the concurrent cache engine described for a
// high-performance, in-memory, bounded key-value cache: a hash-indexed
// primary store governed by a Window-TinyLFU admission and eviction policy,
// with amortized maintenance driven by lock-free read/write buffers.
//
// The package is the core engine only. Builders, synchronous/asynchronous
// façade types, statistics wiring choices, and removal-notification dispatch
// policy are left to callers; this package exposes a single concrete type,
// Cache, constructed from a narrow Config.
package tinylfu
