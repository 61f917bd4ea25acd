package tinylfu

// linkage abstracts over one of a node's three independent prev/next link
// pairs (access-order, write-order, timer-wheel) so a single deque
// implementation serves every policy/expiry chain. Grounded on the
// teacher's entryList[K,V] (s3fifo.go), which hard-codes a single link pair;
// generalizing to a function-table costs an indirection per op, which is
// acceptable here because every linkedDeque mutation happens while holding
// the eviction lock, never on the read hot path.
type linkage[K comparable, V any] struct {
	prev    func(*node[K, V]) *node[K, V]
	setPrev func(*node[K, V], *node[K, V])
	next    func(*node[K, V]) *node[K, V]
	setNext func(*node[K, V], *node[K, V])
}

func accessOrderLinkage[K comparable, V any]() linkage[K, V] {
	return linkage[K, V]{
		prev:    func(n *node[K, V]) *node[K, V] { return n.accessPrev },
		setPrev: func(n, p *node[K, V]) { n.accessPrev = p },
		next:    func(n *node[K, V]) *node[K, V] { return n.accessNext },
		setNext: func(n, p *node[K, V]) { n.accessNext = p },
	}
}

func writeOrderLinkage[K comparable, V any]() linkage[K, V] {
	return linkage[K, V]{
		prev:    func(n *node[K, V]) *node[K, V] { return n.writePrev },
		setPrev: func(n, p *node[K, V]) { n.writePrev = p },
		next:    func(n *node[K, V]) *node[K, V] { return n.writeNext },
		setNext: func(n, p *node[K, V]) { n.writeNext = p },
	}
}

func timerLinkage[K comparable, V any]() linkage[K, V] {
	return linkage[K, V]{
		prev:    func(n *node[K, V]) *node[K, V] { return n.timerPrev },
		setPrev: func(n, p *node[K, V]) { n.timerPrev = p },
		next:    func(n *node[K, V]) *node[K, V] { return n.timerNext },
		setNext: func(n, p *node[K, V]) { n.timerNext = p },
	}
}

// linkedDeque is an intrusive doubly-linked list over *node[K,V]. Head is
// the least-recently-touched end (peekFirst, the eviction/expiry
// candidate); tail is the most-recently-touched end (peekLast, where new or
// freshly-accessed entries land via addLast). One convention is applied
// uniformly across every deque instance.
type linkedDeque[K comparable, V any] struct {
	head, tail *node[K, V]
	length     int
	link       linkage[K, V]
}

func newLinkedDeque[K comparable, V any](link linkage[K, V]) *linkedDeque[K, V] {
	return &linkedDeque[K, V]{link: link}
}

func (d *linkedDeque[K, V]) Len() int { return d.length }

func (d *linkedDeque[K, V]) PeekFirst() *node[K, V] { return d.head }
func (d *linkedDeque[K, V]) PeekLast() *node[K, V]  { return d.tail }

func (d *linkedDeque[K, V]) AddFirst(n *node[K, V]) {
	d.link.setPrev(n, nil)
	d.link.setNext(n, d.head)
	if d.head != nil {
		d.link.setPrev(d.head, n)
	} else {
		d.tail = n
	}
	d.head = n
	d.length++
}

func (d *linkedDeque[K, V]) AddLast(n *node[K, V]) {
	d.link.setNext(n, nil)
	d.link.setPrev(n, d.tail)
	if d.tail != nil {
		d.link.setNext(d.tail, n)
	} else {
		d.head = n
	}
	d.tail = n
	d.length++
}

// Remove unlinks n. n must currently be a member of this deque; the caller
// (policy/expiration code, always under the eviction lock) is responsible
// for that invariant.
func (d *linkedDeque[K, V]) Remove(n *node[K, V]) {
	p, nx := d.link.prev(n), d.link.next(n)
	if p != nil {
		d.link.setNext(p, nx)
	} else {
		d.head = nx
	}
	if nx != nil {
		d.link.setPrev(nx, p)
	} else {
		d.tail = p
	}
	d.link.setPrev(n, nil)
	d.link.setNext(n, nil)
	d.length--
}

// MoveToFront relinks n to the head (LRU) end.
func (d *linkedDeque[K, V]) MoveToFront(n *node[K, V]) {
	if d.head == n {
		return
	}
	d.Remove(n)
	d.AddFirst(n)
}

// MoveToBack relinks n to the tail (MRU) end.
func (d *linkedDeque[K, V]) MoveToBack(n *node[K, V]) {
	if d.tail == n {
		return
	}
	d.Remove(n)
	d.AddLast(n)
}

// Do visits every node from head to tail. The callback must not mutate the
// deque's linkage.
func (d *linkedDeque[K, V]) Do(fn func(*node[K, V])) {
	for n := d.head; n != nil; {
		next := d.link.next(n)
		fn(n)
		n = next
	}
}
