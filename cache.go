package tinylfu

import (
	"context"
	"errors"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/windowcache/tinylfu/loadgroup"
)

// Cache is a bounded, concurrent key-value cache with Window-TinyLFU
// admission and eviction. The primary index is a lock-free map; policy
// bookkeeping (eden/probation/protected placement, the frequency sketch,
// expiry scheduling) is confined to a single maintenance pass serialized by
// a try-lock, so hot-path reads never block on policy work.
type Cache[K comparable, V any] struct {
	store *xsync.Map[K, *node[K, V]]
	lock  *xsync.RBMutex

	cfg Config[K, V]

	reads  *readBuffer[K, V]
	writes *writeBuffer[K, V]
	pol    *policy[K, V]
	wheel  *timerWheel[K, V]
	maint  *maintainer[K, V]

	closed bool
}

// New constructs a Cache from cfg. Returns ErrNullArgument if cfg fails
// validation.
func New[K comparable, V any](cfg Config[K, V]) (*Cache[K, V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	now := cfg.Ticker.Read()
	c := &Cache[K, V]{
		store:  xsync.NewMap[K, *node[K, V]](),
		lock:   xsync.NewRBMutex(),
		cfg:    cfg,
		reads:  newReadBuffer[K, V](),
		writes: newWriteBuffer[K, V](cfg.WriteBufferCapacity),
		pol:    newPolicy[K, V](cfg.MaximumWeight),
		wheel:  newTimerWheel[K, V](now),
	}
	c.maint = newMaintainer[K, V](c.reads, c.writes, c.pol, c.wheel, cfg.Ticker.Read, c.onEvicted)
	c.maint.expireAfterAccess = int64(cfg.ExpireAfterAccess)
	c.maint.expireAfterWrite = int64(cfg.ExpireAfterWrite)
	c.maint.varExpiry = cfg.VarExpiry != nil
	return c, nil
}

// GetIfPresent returns the currently cached value for key without
// triggering a load. The second result is false on a miss or while the
// value is still pending from an in-flight asynchronous load.
func (c *Cache[K, V]) GetIfPresent(key K) (V, bool) {
	var zero V
	n, ok := c.store.Load(key)
	if !ok {
		c.cfg.Stats.RecordMiss()
		c.maint.recordMiss()
		return zero, false
	}
	v, loaded := n.currentValue()
	if !loaded {
		c.cfg.Stats.RecordMiss()
		c.maint.recordMiss()
		return zero, false
	}
	c.recordAccess(n)
	c.cfg.Stats.RecordHit()
	c.maint.recordHit()
	return v, true
}

// Put inserts or replaces the value for key with weight computed by the
// configured Weigher. Returns ErrWeigherFailure if the Weigher reports a
// negative weight.
func (c *Cache[K, V]) Put(key K, value V) error {
	if c.closed {
		return ErrClosed
	}
	weight, err := c.cfg.Weigher.Weigh(key, value)
	if err != nil || weight < 0 {
		return ErrWeigherFailure
	}
	now := c.cfg.Ticker.Read()
	hash := hashKey(key)

	var replaced *node[K, V]
	n := newNode[K, V](key, hash, int32(weight), value, now)
	c.setVarExpiry(n, value, now)

	prev, existed := c.store.LoadAndStore(key, n)
	if existed {
		replaced = prev
	}

	if existed {
		c.offerWrite(writeTask[K, V]{kind: taskRemoved, node: replaced})
		c.dispatchRemoval(replaced, CauseReplaced)
	}
	// Buffering the add is the hot path; maintenance (and the eviction it
	// performs) is amortized, not run per-put. offerWrite only escalates to
	// an inline pass when the write buffer is saturated and has nowhere
	// else to put this task - the same escalation the read buffer uses
	// when a stripe fills.
	c.offerWrite(writeTask[K, V]{kind: taskAdded, node: n})
	return nil
}

// Invalidate removes key's entry, if present, and notifies the removal
// listener with CauseExplicit. A no-op, not an error, once the cache is
// closed: there is nothing left to race against.
func (c *Cache[K, V]) Invalidate(key K) {
	if c.closed {
		return
	}
	n, ok := c.store.LoadAndDelete(key)
	if !ok {
		return
	}
	c.offerWrite(writeTask[K, V]{kind: taskRemoved, node: n})
	c.dispatchRemoval(n, CauseExplicit)
	c.maint.scheduleOrRun()
}

// Compute atomically applies remap to the current (key, value-present)
// pair, installing the returned value, or removing the entry if ok is
// false. remap runs at most once, inside the primary map's per-key
// critical section, so two concurrent Compute calls on the same key can
// never interleave and silently lose an update; it must not block on the
// cache. Returns ErrWeigherFailure, leaving the entry unchanged, if the
// configured Weigher rejects the replacement value.
func (c *Cache[K, V]) Compute(key K, remap func(oldValue V, present bool) (newValue V, ok bool)) error {
	if c.closed {
		return ErrClosed
	}
	now := c.cfg.Ticker.Read()
	hash := hashKey(key)

	var (
		werr         error
		removedNode  *node[K, V]
		removedCause RemovalCause
		addedNode    *node[K, V]
	)

	c.store.Compute(key, func(cur *node[K, V], loaded bool) (*node[K, V], bool) {
		var oldValue V
		present := loaded
		if loaded {
			oldValue, present = cur.currentValue()
		}

		newValue, keep := remap(oldValue, present)
		if !keep {
			if loaded {
				removedNode = cur
				removedCause = CauseExplicit
			}
			return nil, true
		}

		weight, werr2 := c.cfg.Weigher.Weigh(key, newValue)
		if werr2 != nil || weight < 0 {
			werr = ErrWeigherFailure
			return cur, !loaded
		}

		n := newNode[K, V](key, hash, int32(weight), newValue, now)
		c.setVarExpiry(n, newValue, now)
		addedNode = n
		if loaded {
			removedNode = cur
			removedCause = CauseReplaced
		}
		return n, false
	})

	if werr != nil {
		return werr
	}
	if removedNode != nil {
		c.offerWrite(writeTask[K, V]{kind: taskRemoved, node: removedNode})
		c.dispatchRemoval(removedNode, removedCause)
	}
	if addedNode != nil {
		c.offerWrite(writeTask[K, V]{kind: taskAdded, node: addedNode})
	}
	return nil
}

// AsyncGet returns the cached value for key, or triggers loader.Load and
// publishes the result once it completes. Concurrent AsyncGet calls for the
// same missing key coalesce onto a single in-flight load.
func (c *Cache[K, V]) AsyncGet(ctx context.Context, key K, loader Loader[K, V]) (V, error) {
	var zero V
	if c.closed {
		return zero, ErrClosed
	}
	if n, ok := c.store.Load(key); ok {
		if v, loaded := n.currentValue(); loaded {
			c.recordAccess(n)
			c.cfg.Stats.RecordHit()
			c.maint.recordHit()
			return v, nil
		}
		if pending, ok := n.pendingResult(); ok {
			<-pending.done
			if pending.err != nil {
				return zero, pending.err
			}
			return pending.value, nil
		}
	}

	future := newAsyncResult[V]()
	hash := hashKey(key)
	placeholder := &node[K, V]{key: key, hash: hash, timerBucket: -1, timerLevel: -1}
	placeholder.slot.Store(pendingSlot(future))
	placeholder.queue.Store(uint32(queueZeroWeight))

	// Claiming the pending slot for a missing key is the one place two
	// goroutines can race to become "the loader" for the same key; c.lock's
	// writer side serializes that claim. No other operation takes c.lock.
	c.lock.Lock()
	actual, loadedExisting := c.store.LoadOrStore(key, placeholder)
	c.lock.Unlock()
	if !loadedExisting {
		c.maint.recordMiss()
		c.runLoad(ctx, key, loader, future, actual)
	} else if v, loaded := actual.currentValue(); loaded {
		c.recordAccess(actual)
		c.cfg.Stats.RecordHit()
		c.maint.recordHit()
		return v, nil
	} else if pending, ok := actual.pendingResult(); ok {
		<-pending.done
		if pending.err != nil {
			return zero, pending.err
		}
		return pending.value, nil
	}

	<-future.done
	if future.err != nil {
		return zero, future.err
	}
	return future.value, nil
}

func (c *Cache[K, V]) runLoad(ctx context.Context, key K, loader Loader[K, V], future *asyncResult[V], placeholder *node[K, V]) {
	start := c.cfg.Ticker.Read()
	c.cfg.Executor.Execute(func() {
		value, err := loader.Load(ctx, key)
		elapsed := c.cfg.Ticker.Read() - start
		if err != nil {
			c.cfg.Stats.RecordLoadFailure(elapsed)
			c.store.Delete(key)
			future.complete(value, ErrLoadFailure)
			return
		}

		weight, werr := c.cfg.Weigher.Weigh(key, value)
		if werr != nil || weight < 0 {
			c.cfg.Stats.RecordLoadFailure(elapsed)
			c.store.Delete(key)
			future.complete(value, ErrWeigherFailure)
			return
		}
		c.cfg.Stats.RecordLoadSuccess(elapsed)

		now := c.cfg.Ticker.Read()
		n := newNode[K, V](key, placeholder.hash, int32(weight), value, now)
		c.setVarExpiry(n, value, now)
		c.store.Store(key, n)
		c.offerWrite(writeTask[K, V]{kind: taskAdded, node: n})
		c.maint.scheduleOrRun()
		future.complete(value, nil)
	})
}

// GetAll returns the cached values for every key already present, and
// passes the remaining keys to loader.LoadAll in a single call; when LoadAll
// reports errLoadAllUnsupported it instead fans them out to per-key loads in
// parallel via the loadgroup package.
func (c *Cache[K, V]) GetAll(ctx context.Context, keys []K, loader Loader[K, V]) (map[K]V, error) {
	result := make(map[K]V, len(keys))
	var missing []K
	for _, k := range keys {
		if v, ok := c.GetIfPresent(k); ok {
			result[k] = v
		} else {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := loader.LoadAll(ctx, missing)
	if errors.Is(err, errLoadAllUnsupported) {
		fetched, ferr := loadgroup.Fetch(ctx, missing, 0, func(ctx context.Context, k K) (V, error) {
			return c.AsyncGet(ctx, k, loader)
		})
		if ferr != nil {
			return result, ferr
		}
		for k, v := range fetched {
			result[k] = v
		}
		return result, nil
	}
	if err != nil {
		return result, err
	}
	requested := make(map[K]struct{}, len(missing))
	for _, k := range missing {
		requested[k] = struct{}{}
	}
	// loader.LoadAll may return more keys than requested (a bulk backend
	// fetching by range or prefix, say); every one of them gets cached, but
	// only the keys actually asked for belong in the result.
	for k, v := range loaded {
		if werr := c.Put(k, v); werr != nil {
			return result, werr
		}
		if _, wanted := requested[k]; wanted {
			result[k] = v
		}
	}
	return result, nil
}

// CleanUp forces an immediate maintenance pass on the calling goroutine:
// drain reads, drain writes, expire, evict, climb. Idempotent - calling it
// twice in a row with no intervening mutation runs the same no-op pass
// twice, never leaving the cache in a different state than a single call
// would.
func (c *Cache[K, V]) CleanUp() {
	c.maint.runPass()
}

// Close releases no external resources today (the core owns no file
// descriptors or goroutines outside Executor dispatch) but marks the cache
// closed so later mutations fail fast with ErrClosed instead of silently
// racing a caller's teardown.
func (c *Cache[K, V]) Close() error {
	c.closed = true
	return nil
}

// Stats returns a snapshot of the configured StatsRecorder's counters.
func (c *Cache[K, V]) Stats() Stats {
	return c.cfg.Stats.Snapshot()
}

// WeightedSize returns the current sum of entry weights, an approximation
// that lags true occupancy by whatever writes have not yet been drained by
// a maintenance pass.
func (c *Cache[K, V]) WeightedSize() int64 {
	return c.pol.weightedSize
}

func (c *Cache[K, V]) setVarExpiry(n *node[K, V], value V, now int64) {
	if c.cfg.VarExpiry == nil {
		return
	}
	d := c.cfg.VarExpiry.ExpireAfter(n.key, value, now)
	if d > 0 {
		n.varExpireNanos.Store(now + d)
	}
}

// offerWrite buffers a write task, never dropping it: a saturated buffer
// forces an inline maintenance pass (which drains it) and retries, looping
// until the offer is accepted. The primary map is always mutated before
// this is called, so a dropped task here would desync policy bookkeeping
// from map state.
func (c *Cache[K, V]) offerWrite(t writeTask[K, V]) {
	for !c.writes.offer(t) {
		c.maint.scheduleOrRun()
	}
}

func (c *Cache[K, V]) recordAccess(n *node[K, V]) {
	now := c.cfg.Ticker.Read()
	n.accessTimeNanos.Store(now)
	if c.reads.recordRead(n) {
		c.maint.scheduleOrRun()
	}
}

// onEvicted is the maintainer's single exit path for any node that leaves
// policy structures, whatever the cause: it deletes the map entry (if the
// node currently occupying that key is still this one - a concurrent Put
// may already have replaced it) and dispatches the removal notification.
func (c *Cache[K, V]) onEvicted(n *node[K, V], cause RemovalCause) {
	c.store.Compute(n.key, func(cur *node[K, V], loaded bool) (*node[K, V], bool) {
		if loaded && cur == n {
			return nil, true
		}
		return cur, false
	})
	c.cfg.Stats.RecordEviction(int(n.weight), cause)
	c.dispatchRemoval(n, cause)
}

func (c *Cache[K, V]) dispatchRemoval(n *node[K, V], cause RemovalCause) {
	if c.cfg.RemovalListener == nil {
		return
	}
	v, _ := n.currentValue()
	key, listener := n.key, c.cfg.RemovalListener
	c.cfg.Executor.Execute(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error(ErrListenerFailure.Error(), "key", key, "cause", cause.String(), "recovered", r)
			}
		}()
		listener.OnRemoval(key, v, cause)
	})
}
