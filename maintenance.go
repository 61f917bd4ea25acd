package tinylfu

import "sync/atomic"

// maintenanceState is the lifecycle of the single maintenance pass this
// cache instance may be running at any moment. Writers that cannot acquire
// the eviction lock immediately merely flag REQUIRED and move on, trusting
// the goroutine currently running PROCESSING to notice the flag and loop
// rather than return to IDLE.
type maintenanceState uint32

const (
	stateIdle maintenanceState = iota
	stateRequired
	stateProcessingToIdle
	stateProcessingToRequired
)

// maintainer owns the try-lock state machine and runs one maintenance pass:
// drain reads, drain writes, expire, evict, climb. Exactly one goroutine
// executes a pass at a time; every other caller that also wants maintenance
// to run either finds it already in flight (and flags REQUIRED so the
// in-flight pass loops once more before returning to IDLE) or triggers a
// fresh pass itself.
type maintainer[K comparable, V any] struct {
	state atomic.Uint32

	reads      *readBuffer[K, V]
	writes     *writeBuffer[K, V]
	policy     *policy[K, V]
	wheel      *timerWheel[K, V]
	writeOrder *linkedDeque[K, V] // dedicated to expireAfterWrite only

	now               func() int64
	expireAfterAccess int64
	expireAfterWrite  int64
	varExpiry         bool

	remove func(n *node[K, V], cause RemovalCause)

	hits   atomic.Int64
	misses atomic.Int64
}

// recordHit and recordMiss feed the hill-climber's hit-rate sample; they are
// distinct from the pluggable StatsRecorder, which the cache's hot path also
// updates for caller-visible metrics.
func (m *maintainer[K, V]) recordHit()  { m.hits.Add(1) }
func (m *maintainer[K, V]) recordMiss() { m.misses.Add(1) }

func newMaintainer[K comparable, V any](
	reads *readBuffer[K, V],
	writes *writeBuffer[K, V],
	p *policy[K, V],
	wheel *timerWheel[K, V],
	now func() int64,
	remove func(n *node[K, V], cause RemovalCause),
) *maintainer[K, V] {
	return &maintainer[K, V]{
		reads: reads, writes: writes, policy: p, wheel: wheel, now: now, remove: remove,
		writeOrder: newLinkedDeque[K, V](writeOrderLinkage[K, V]()),
	}
}

// scheduleOrRun is called when a write-buffer offer fails, when a read-buffer
// stripe fills, after Invalidate, and after an async load. If maintenance is
// already running, it flags that another pass is required and returns. If
// idle, it transitions to PROCESSING and runs a pass inline on the calling
// goroutine - there is no separate maintenance goroutine; every writer and
// every reader that overflows its buffer is a potential maintenance runner,
// which is what keeps a pass amortized rather than dedicated to a thread
// nothing else uses.
func (m *maintainer[K, V]) scheduleOrRun() {
	for {
		switch maintenanceState(m.state.Load()) {
		case stateIdle:
			if m.state.CompareAndSwap(uint32(stateIdle), uint32(stateProcessingToIdle)) {
				m.runLoop()
				return
			}
		case stateRequired:
			if m.state.CompareAndSwap(uint32(stateRequired), uint32(stateProcessingToIdle)) {
				m.runLoop()
				return
			}
		case stateProcessingToIdle:
			m.state.CompareAndSwap(uint32(stateProcessingToIdle), uint32(stateProcessingToRequired))
			return
		case stateProcessingToRequired:
			return
		default:
			return
		}
	}
}

// runLoop runs passes until no further pass was requested while the current
// one was in flight.
func (m *maintainer[K, V]) runLoop() {
	for {
		m.runPass()
		switch maintenanceState(m.state.Load()) {
		case stateProcessingToIdle:
			if m.state.CompareAndSwap(uint32(stateProcessingToIdle), uint32(stateIdle)) {
				return
			}
		case stateProcessingToRequired:
			if m.state.CompareAndSwap(uint32(stateProcessingToRequired), uint32(stateProcessingToIdle)) {
				continue
			}
		default:
			return
		}
	}
}

// runPass executes the fixed order: drain reads (replay access order,
// increment frequencies), drain writes (apply add/update/remove tasks),
// expire (access/write/variable), evict (enforce weighted-size cap), climb
// (adjust eden/protected split from the round's hit-rate delta).
func (m *maintainer[K, V]) runPass() {
	now := m.now()

	m.reads.drainAll(func(n *node[K, V]) {
		if n.queueType() == queueDead {
			return
		}
		m.policy.onAccess(n)
	})

	m.writes.drainAll(func(t writeTask[K, V]) {
		switch t.kind {
		case taskAdded:
			m.policy.onAdd(t.node)
			if m.expireAfterWrite > 0 {
				m.writeOrder.AddLast(t.node)
			}
			if m.varExpiry {
				m.wheel.schedule(t.node, now)
			}
		case taskUpdated:
			if t.node.queueType() != queueDead {
				m.policy.onAccess(t.node)
			}
			if m.expireAfterWrite > 0 {
				m.writeOrder.MoveToBack(t.node)
			}
			if m.varExpiry {
				m.wheel.schedule(t.node, now)
			}
		case taskRemoved:
			// The caller (Put/Invalidate/Compute) dispatches the removal
			// notification itself right after offering this task; this
			// branch only reconciles policy structures and the timer wheel,
			// it must not notify a second time.
			m.wheel.unschedule(t.node)
			if m.expireAfterWrite > 0 {
				m.writeOrder.Remove(t.node)
			}
			m.policy.onRemove(t.node)
		case taskUpdateWeight:
			m.policy.onUpdateWeight(t.newWeight - t.oldWeight)
		}
	})

	m.expireEntries(now)

	m.policy.evictEntries(func(n *node[K, V], cause RemovalCause) {
		m.wheel.unschedule(n)
		m.remove(n, cause)
	})

	m.policy.climb(m.hits.Swap(0), m.misses.Swap(0))
}

// expireEntries evicts every node past its access/write/variable deadline.
// Fixed-duration expiries are checked by walking the access-order and
// write-order deques from their LRU end only until the first live entry,
// since both are maintained in time order already.
func (m *maintainer[K, V]) expireEntries(now int64) {
	if m.varExpiry {
		m.wheel.expire(now, func(n *node[K, V]) {
			m.policy.onRemove(n)
			m.remove(n, CauseExpired)
		})
	}

	if m.expireAfterAccess > 0 {
		for _, d := range []*linkedDeque[K, V]{m.policy.eden, m.policy.probation, m.policy.protected} {
			for {
				head := d.PeekFirst()
				if head == nil || !accessExpiry[K, V](head, now, m.expireAfterAccess) {
					break
				}
				if m.expireAfterWrite > 0 {
					m.writeOrder.Remove(head)
				}
				m.policy.onRemove(head)
				m.remove(head, CauseExpired)
			}
		}
	}

	if m.expireAfterWrite > 0 {
		for {
			head := m.writeOrder.PeekFirst()
			if head == nil || !writeExpiry[K, V](head, now, m.expireAfterWrite) {
				break
			}
			m.writeOrder.Remove(head)
			m.policy.onRemove(head)
			m.remove(head, CauseExpired)
		}
	}
}
