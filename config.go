package tinylfu

import "time"

// Config is the narrow, validated construction surface for Cache. It is
// intentionally not a fluent builder: the builder/configuration surface is
// an external collaborator, out of scope for this core. Callers (or a
// builder living in another package) populate this struct directly.
type Config[K comparable, V any] struct {
	// MaximumWeight bounds the sum of entry weights the cache will hold.
	// Required to be > 0: this core is always bounded (see DESIGN.md on the
	// hill-climber scope decision).
	MaximumWeight int64

	// Weigher assigns per-entry weight. Defaults to a unit weigher (pure
	// size-based eviction) when nil.
	Weigher Weigher[K, V]

	// ExpireAfterAccess, if > 0, evicts entries that have not been read or
	// written for this long.
	ExpireAfterAccess time.Duration

	// ExpireAfterWrite, if > 0, evicts entries this long after their last
	// write, regardless of reads.
	ExpireAfterWrite time.Duration

	// VarExpiry, if set, assigns a per-entry duration recomputed on every
	// write. It applies in addition to ExpireAfterAccess/ExpireAfterWrite,
	// not instead of them: an entry expires at whichever deadline comes
	// first.
	VarExpiry VarExpiry[K, V]

	// Ticker supplies the monotonic clock. Defaults to the system clock.
	Ticker Ticker

	// Executor dispatches asynchronous loads and removal notifications.
	// Defaults to one goroutine per task.
	Executor Executor

	// RemovalListener, if set, is notified (on Executor) whenever an entry
	// leaves the cache for any RemovalCause.
	RemovalListener RemovalListener[K, V]

	// Stats, if set, receives hit/miss/load/eviction counters. Defaults to
	// a no-op recorder.
	Stats StatsRecorder

	// WriteBufferCapacity bounds the MPSC write buffer. Defaults to 128.
	WriteBufferCapacity int
}

func (c *Config[K, V]) validate() error {
	if c.MaximumWeight <= 0 {
		return ErrNullArgument
	}
	if c.ExpireAfterAccess < 0 || c.ExpireAfterWrite < 0 {
		return ErrNullArgument
	}
	return nil
}

func (c *Config[K, V]) withDefaults() Config[K, V] {
	cfg := *c
	if cfg.Weigher == nil {
		cfg.Weigher = unitWeigher[K, V]{}
	}
	if cfg.Ticker == nil {
		cfg.Ticker = systemTicker{}
	}
	if cfg.Executor == nil {
		cfg.Executor = goExecutor{}
	}
	if cfg.Stats == nil {
		cfg.Stats = noopStats{}
	}
	if cfg.WriteBufferCapacity <= 0 {
		cfg.WriteBufferCapacity = 128
	}
	return cfg
}

// processStart anchors nowNanos to the monotonic clock reading taken when
// the package is initialized.
var processStart = time.Now()

// nowNanos is the process-wide fallback time source used by systemTicker:
// monotonic nanoseconds elapsed since processStart.
func nowNanos() int64 {
	return int64(time.Since(processStart))
}
