// Package stats provides Counting, a lock-free atomic-counter StatsRecorder
// for callers of the tinylfu cache core who want real numbers without
// pulling in Prometheus. The no-op recorder used when Config.Stats is left
// nil is not in this package; it is tinylfu's own unexported noopStats.
package stats

import (
	"sync/atomic"

	"github.com/windowcache/tinylfu"
)

// Counting is a StatsRecorder backed entirely by atomic counters, safe for
// concurrent use from every cache goroutine without any locking.
type Counting struct {
	hits             atomic.Int64
	misses           atomic.Int64
	loadSuccessCount atomic.Int64
	loadFailureCount atomic.Int64
	evictionCount    atomic.Int64
	evictionWeight   atomic.Int64
	totalLoadNanos   atomic.Int64
}

// New returns a fresh Counting recorder.
func New() *Counting { return &Counting{} }

func (c *Counting) RecordHit()  { c.hits.Add(1) }
func (c *Counting) RecordMiss() { c.misses.Add(1) }

func (c *Counting) RecordLoadSuccess(loadTimeNanos int64) {
	c.loadSuccessCount.Add(1)
	c.totalLoadNanos.Add(loadTimeNanos)
}

func (c *Counting) RecordLoadFailure(loadTimeNanos int64) {
	c.loadFailureCount.Add(1)
	c.totalLoadNanos.Add(loadTimeNanos)
}

func (c *Counting) RecordEviction(weight int, _ tinylfu.RemovalCause) {
	c.evictionCount.Add(1)
	c.evictionWeight.Add(int64(weight))
}

// Snapshot returns a point-in-time copy of every counter.
func (c *Counting) Snapshot() tinylfu.Stats {
	return tinylfu.Stats{
		Hits:             c.hits.Load(),
		Misses:           c.misses.Load(),
		LoadSuccessCount: c.loadSuccessCount.Load(),
		LoadFailureCount: c.loadFailureCount.Load(),
		EvictionCount:    c.evictionCount.Load(),
		EvictionWeight:   c.evictionWeight.Load(),
		TotalLoadNanos:   c.totalLoadNanos.Load(),
	}
}
