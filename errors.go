package tinylfu

import "errors"

// Error kinds surfaced by the core. These are sentinel values, not
// exception types: callers compare with errors.Is.
var (
	// ErrNullArgument is returned by New when a Config field is missing or
	// out of range (a non-positive MaximumWeight or a negative expiry
	// duration). Keys and values are not checked against it.
	ErrNullArgument = errors.New("tinylfu: null argument")

	// ErrLoadFailure is returned when a Loader returned an error (including
	// one caused by a cancelled context). No entry is retained. A value
	// returned without an error is cached as it is, even a zero or nil value.
	ErrLoadFailure = errors.New("tinylfu: load failure")

	// ErrWeigherFailure is returned when a Weigher returns a negative
	// weight. Treated identically to ErrLoadFailure by the core.
	ErrWeigherFailure = errors.New("tinylfu: weigher failure")

	// ErrListenerFailure is logged (never returned to a caller) when a
	// RemovalListener panics; it never affects cache state.
	ErrListenerFailure = errors.New("tinylfu: listener failure")

	// ErrWriterFailure is reserved for a through-writing Writer collaborator
	// (user-facing CacheWriter-style interface): on insert/update it would
	// abort the mutation and surface to the caller, on removal it would
	// abort the removal and leave state unchanged. The Writer interface
	// itself is an external collaborator out of this core's scope (see
	// doc.go), so this sentinel is never constructed or returned here; it
	// exists so code wired against the full error set still compiles.
	ErrWriterFailure = errors.New("tinylfu: writer failure")

	// ErrClosed is returned by Put, Compute, and AsyncGet once the cache has
	// been Closed; Invalidate becomes a no-op. GetIfPresent still succeeds
	// against data already
	// resident, since closing is a write-path guard, not a teardown that
	// invalidates existing entries.
	ErrClosed = errors.New("tinylfu: cache closed")
)

// Capacity overruns are not errors: eviction catches up on the next
// maintenance pass. There is deliberately no ErrCapacityOverrun sentinel.
