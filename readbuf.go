package tinylfu

import (
	"runtime"
	"sync/atomic"
)

// readBufferSize is the number of slots per stripe. A stripe that fills
// between drains simply drops further reads for that window: losing a few
// access recordings under contention is a deliberate tradeoff against ever
// blocking a reader.
const readBufferSize = 64

// readStripe is one lane of the striped read buffer: a single-producer-many
// -producer ring of recorded node pointers, drained only under the eviction
// lock.
type readStripe[K comparable, V any] struct {
	writeIdx atomic.Uint64
	readIdx  uint64 // owned by the drainer; never touched concurrently
	slots    [readBufferSize]atomic.Pointer[node[K, V]]
	_        [0]func() // prevents accidental comparison
}

// readBuffer records recent read accesses with minimal contention: each
// goroutine is assigned a stripe (by hashing a stack-local address, a cheap
// per-goroutine proxy in the absence of a stable Go thread-local id), and
// only CASes within its own stripe's write cursor. Full stripes drop the
// recording rather than block, matching the "best effort, not exactly
// once" nature of access-order maintenance: a dropped read delays a
// promotion/demotion by one access, it never corrupts state.
type readBuffer[K comparable, V any] struct {
	stripes []*readStripe[K, V]
	mask    uint64
}

func newReadBuffer[K comparable, V any]() *readBuffer[K, V] {
	n := nextPow2U64(int64(runtime.GOMAXPROCS(0)))
	if n < 1 {
		n = 1
	}
	rb := &readBuffer[K, V]{
		stripes: make([]*readStripe[K, V], n),
		mask:    n - 1,
	}
	for i := range rb.stripes {
		rb.stripes[i] = &readStripe[K, V]{}
	}
	return rb
}

// stripeHash hashes the address of a stack-local byte as a cheap stand-in
// for a goroutine id: Go deliberately exposes no such id, but the low bits
// of a stack address are stable for the lifetime of one call and scatter
// well enough across concurrently-running goroutines to spread stripe
// contention.
func stripeHash() uint64 {
	var b byte
	p := uintptr(noescapeAddr(&b))
	h := uint64(p)
	h ^= h >> 33
	h *= wyp0
	h ^= h >> 29
	return h
}

//go:nosplit
func noescapeAddr(p *byte) *byte { return p }

// recordRead offers n to the caller's stripe. Returns true if the stripe
// should now be drained (it just became full), matching the "signal
// maintenance once per fill, not once per record" throttling used for the
// write buffer too. The write cursor only advances when there is room: a CAS
// loop admits the write, rather than incrementing unconditionally and
// discovering saturation after the fact, so a saturated stripe's cursor
// never drifts ahead of what drainAll can still catch up on.
func (rb *readBuffer[K, V]) recordRead(n *node[K, V]) (full bool) {
	stripe := rb.stripes[stripeHash()&rb.mask]
	for {
		idx := stripe.writeIdx.Load()
		if idx-stripe.readIdx >= readBufferSize {
			// Stripe is saturated between drains; drop this recording.
			return false
		}
		if stripe.writeIdx.CompareAndSwap(idx, idx+1) {
			stripe.slots[idx%readBufferSize].Store(n)
			return idx+1-stripe.readIdx >= readBufferSize
		}
	}
}

// drainAll visits every recorded node across every stripe in FIFO order
// per-stripe, clearing each stripe as it goes. Called only while holding
// the eviction lock.
func (rb *readBuffer[K, V]) drainAll(fn func(*node[K, V])) {
	for _, stripe := range rb.stripes {
		write := stripe.writeIdx.Load()
		for stripe.readIdx < write {
			slot := stripe.readIdx % readBufferSize
			if n := stripe.slots[slot].Load(); n != nil {
				fn(n)
				stripe.slots[slot].Store(nil)
			}
			stripe.readIdx++
		}
	}
}
