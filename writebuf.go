package tinylfu

// writeTaskKind tags what a buffered write-side event represents.
type writeTaskKind uint8

const (
	taskAdded writeTaskKind = iota
	taskUpdated
	taskRemoved
	taskUpdateWeight
)

// writeTask is one buffered mutation. Only the fields relevant to kind are
// populated; the rest are zero.
type writeTask[K comparable, V any] struct {
	kind      writeTaskKind
	node      *node[K, V]
	oldWeight int32
	newWeight int32
}

// writeBuffer is a bounded MPSC queue of pending maintenance work: every
// put/remove/weight-change enqueues a task here instead of touching the
// eden/probation/protected deques directly, so policy mutation stays
// confined to the single goroutine running under the eviction lock. Built
// on a buffered channel rather than a hand-rolled lock-free ring: Go's
// channel already gives the MPSC semantics needed (many put/remove
// callers, one maintenance drainer) without unsafe pointer games; the
// channel's buffer holds the tasks by value.
type writeBuffer[K comparable, V any] struct {
	ch chan writeTask[K, V]
}

func newWriteBuffer[K comparable, V any](capacity int) *writeBuffer[K, V] {
	return &writeBuffer[K, V]{ch: make(chan writeTask[K, V], capacity)}
}

// offer enqueues t. Returns false if the buffer is full, signaling the
// caller to trigger an immediate maintenance pass rather than block: a full
// write buffer means maintenance has fallen behind and must run now, on
// the calling goroutine if necessary, per the try-lock escalation in
// maintenance.go.
func (wb *writeBuffer[K, V]) offer(t writeTask[K, V]) bool {
	select {
	case wb.ch <- t:
		return true
	default:
		return false
	}
}

// drainAll pulls every currently-queued task and applies fn to each,
// stopping once the channel is empty. Called only from the maintenance
// goroutine.
func (wb *writeBuffer[K, V]) drainAll(fn func(writeTask[K, V])) {
	for {
		select {
		case t := <-wb.ch:
			fn(t)
		default:
			return
		}
	}
}

func (wb *writeBuffer[K, V]) len() int { return len(wb.ch) }
func (wb *writeBuffer[K, V]) cap() int { return cap(wb.ch) }
