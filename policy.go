package tinylfu

// admissionThreshold guards admission when the candidate is no more frequent
// than the victim: a candidate at or below this frequency is rejected
// outright, so a burst of one-off reads cannot displace a warm entry; above
// it, admission is decided at random.
const admissionThreshold = 5

const (
	initialPercentEden          = 0.01
	percentMainProtected        = 0.80
	hillClimbInitialStepPercent = 0.0625
	hillClimbStepDecayRate      = 0.98
	hillClimbRestartThreshold   = 0.05
)

// policy implements Window-TinyLFU: an eden (window) segment sized as a
// small fraction of the total, and a main space split into probation and
// protected segments forming an SLRU. Every method runs only while the
// cache's eviction lock is held.
type policy[K comparable, V any] struct {
	sketch *frequencySketch

	eden      *linkedDeque[K, V]
	probation *linkedDeque[K, V]
	protected *linkedDeque[K, V]

	weightedSize int64
	maximum      int64

	edenMaximum      int64
	mainProtectedMax int64

	// hill-climber state
	stepSize      float64
	prevHitCount  int64
	prevMissCount int64
	prevHitRate   float64

	rand uint64 // xorshift state for tie-break admission
}

func newPolicy[K comparable, V any](maximum int64) *policy[K, V] {
	p := &policy[K, V]{
		sketch:    newFrequencySketch(maximum),
		eden:      newLinkedDeque[K, V](accessOrderLinkage[K, V]()),
		probation: newLinkedDeque[K, V](accessOrderLinkage[K, V]()),
		protected: newLinkedDeque[K, V](accessOrderLinkage[K, V]()),
		maximum:   maximum,
		rand:      0x9e3779b97f4a7c15,
	}
	p.resizeWindow(maximum)
	return p
}

func (p *policy[K, V]) resizeWindow(maximum int64) {
	p.maximum = maximum
	edenMax := int64(float64(maximum) * initialPercentEden)
	if edenMax < 1 {
		edenMax = 1
	}
	main := maximum - edenMax
	protectedMax := int64(float64(main) * percentMainProtected)
	p.edenMaximum = edenMax
	p.mainProtectedMax = protectedMax
	p.stepSize = hillClimbInitialStepPercent * float64(maximum)
}

// deque returns the deque currently holding queue type q, or nil for
// zero-weight/dead nodes which are not policy-managed.
func (p *policy[K, V]) deque(q queueType) *linkedDeque[K, V] {
	switch q {
	case queueEden:
		return p.eden
	case queueProbation:
		return p.probation
	case queueProtected:
		return p.protected
	default:
		return nil
	}
}

// onAdd links a freshly-created node into eden, the birthplace of every
// entry.
func (p *policy[K, V]) onAdd(n *node[K, V]) {
	n.setQueueType(queueEden)
	p.eden.AddLast(n)
	p.weightedSize += int64(n.weight)
	p.sketch.increment(n.hash)
}

// onAccess replays one read-buffer event: move the node within (or up out
// of) its current deque and record the access in the frequency sketch.
func (p *policy[K, V]) onAccess(n *node[K, V]) {
	p.sketch.increment(n.hash)
	// A read can be drained before the node's add task: such a node already
	// carries the EDEN tag from newNode but is not linked into any deque, so
	// only its frequency is recorded.
	if n.accessPrev == nil && n.accessNext == nil {
		if d := p.deque(n.queueType()); d == nil || d.PeekFirst() != n {
			return
		}
	}
	switch n.queueType() {
	case queueEden:
		p.eden.MoveToBack(n)
	case queueProtected:
		p.protected.MoveToBack(n)
	case queueProbation:
		p.promoteToProtected(n)
	}
}

// promoteToProtected moves a probation hit into protected, demoting
// protected's LRU back to probation if that overflows the protected cap.
func (p *policy[K, V]) promoteToProtected(n *node[K, V]) {
	p.probation.Remove(n)
	n.setQueueType(queueProtected)
	p.protected.AddLast(n)
	p.demoteProtectedIfNeeded()
}

func (p *policy[K, V]) protectedWeightedSize() int64 {
	var w int64
	p.protected.Do(func(n *node[K, V]) { w += int64(n.weight) })
	return w
}

func (p *policy[K, V]) demoteProtectedIfNeeded() {
	for p.protectedWeightedSize() > p.mainProtectedMax {
		head := p.protected.PeekFirst()
		if head == nil {
			return
		}
		p.protected.Remove(head)
		head.setQueueType(queueProbation)
		p.probation.AddLast(head)
	}
}

// onRemove unlinks n from whichever deque currently holds it and adjusts
// weighted size. Safe to call for a node that is not in any policy deque
// (queueZeroWeight/queueDead), a no-op in that case.
func (p *policy[K, V]) onRemove(n *node[K, V]) {
	d := p.deque(n.queueType())
	if d == nil {
		return
	}
	d.Remove(n)
	p.weightedSize -= int64(n.weight)
	n.setQueueType(queueDead)
}

// onUpdateWeight adjusts weighted size for a weight change already applied
// to n.weight by the caller.
func (p *policy[K, V]) onUpdateWeight(delta int32) {
	p.weightedSize += int64(delta)
}

// evictEntries evicts under pressure: the admission algorithm while eden
// overflows, then straightforward LRU within main while weighted size still
// exceeds maximum. Every evicted node is passed to evict with CauseSize.
func (p *policy[K, V]) evictEntries(evict func(n *node[K, V], cause RemovalCause)) {
	p.evictFromEden(evict)
	for p.weightedSize > p.maximum {
		victim := p.nextVictim()
		if victim == nil {
			return
		}
		p.onRemove(victim)
		evict(victim, CauseSize)
	}
}

// evictFromEden runs the admission algorithm for every eden node that pushes
// eden over its own budget: candidate = eden's LRU end, victim = probation's
// LRU end (the weakest member of main).
func (p *policy[K, V]) evictFromEden(evict func(n *node[K, V], cause RemovalCause)) {
	edenWeight := func() int64 {
		var w int64
		p.eden.Do(func(n *node[K, V]) { w += int64(n.weight) })
		return w
	}
	for edenWeight() > p.edenMaximum {
		candidate := p.eden.PeekFirst()
		if candidate == nil {
			return
		}
		if p.weightedSize <= p.maximum {
			p.eden.Remove(candidate)
			candidate.setQueueType(queueProbation)
			p.probation.AddLast(candidate)
			continue
		}
		victim := p.probation.PeekFirst()
		if victim == nil || victim == candidate {
			p.eden.Remove(candidate)
			candidate.setQueueType(queueProbation)
			p.probation.AddLast(candidate)
			continue
		}
		if p.admit(candidate, victim) {
			p.onRemove(victim)
			evict(victim, CauseSize)
			p.eden.Remove(candidate)
			candidate.setQueueType(queueProbation)
			p.probation.AddLast(candidate)
		} else {
			p.onRemove(candidate)
			evict(candidate, CauseSize)
		}
	}
}

// admit reports whether candidate should be admitted to the main space in
// place of victim, using frequency comparison with an admission-threshold
// guard against sparse-burst pollution.
func (p *policy[K, V]) admit(candidate, victim *node[K, V]) bool {
	candidateFreq := p.sketch.frequency(candidate.hash)
	victimFreq := p.sketch.frequency(victim.hash)
	if candidateFreq > victimFreq {
		return true
	}
	if candidateFreq <= admissionThreshold {
		return false
	}
	return p.nextBool()
}

// nextVictim returns the weakest entry in main once eden is within budget:
// probation's LRU end if probation is non-empty, else protected's, else
// eden's.
func (p *policy[K, V]) nextVictim() *node[K, V] {
	if n := p.probation.PeekFirst(); n != nil {
		return n
	}
	if n := p.protected.PeekFirst(); n != nil {
		return n
	}
	return p.eden.PeekFirst()
}

// nextBool is a xorshift64* PRNG used only when a candidate above the
// admission threshold is no more frequent than its victim.
func (p *policy[K, V]) nextBool() bool {
	p.rand ^= p.rand << 13
	p.rand ^= p.rand >> 7
	p.rand ^= p.rand << 17
	return p.rand&1 == 0
}

// climb adaptively resizes the eden/protected split: sample the hit-rate
// delta since the last round, grow eden's share if hit rate improved,
// shrink it otherwise, with a step size that decays each round so the
// policy converges instead of oscillating.
func (p *policy[K, V]) climb(hits, misses int64) {
	total := hits + misses
	if total == 0 {
		return
	}
	hitRate := float64(hits) / float64(total)
	delta := hitRate - p.prevHitRate

	if delta < -hillClimbRestartThreshold {
		// Hit rate regressed sharply: reverse direction and restart the
		// step size, the same recovery the original hill-climber uses
		// against a sudden workload shift.
		p.stepSize = -hillClimbInitialStepPercent * float64(p.maximum)
	}

	amount := p.stepSize
	if delta < 0 {
		amount = -amount
	}
	p.adjustEdenSize(amount)
	p.stepSize *= hillClimbStepDecayRate
	p.prevHitRate = hitRate
	p.prevHitCount = hits
	p.prevMissCount = misses
}

// adjustEdenSize moves amount weight between eden and the main/protected
// split, migrating entries across deque boundaries as needed, then
// reconciles both caps against the shifted budget.
func (p *policy[K, V]) adjustEdenSize(amount float64) {
	if amount == 0 {
		return
	}
	delta := int64(amount)
	if delta == 0 {
		if amount > 0 {
			delta = 1
		} else {
			delta = -1
		}
	}
	newEdenMax := p.edenMaximum + delta
	if newEdenMax < 1 {
		newEdenMax = 1
	}
	if main := p.maximum - newEdenMax; main < 1 {
		newEdenMax = p.maximum - 1
		if newEdenMax < 1 {
			newEdenMax = 1
		}
	}
	p.edenMaximum = newEdenMax
	p.mainProtectedMax = int64(float64(p.maximum-newEdenMax) * percentMainProtected)

	// Demote protected overflow into probation now that the protected cap
	// may have shrunk; eden overflow is moved out by evictFromEden on the
	// next maintenance pass.
	p.demoteProtectedIfNeeded()
}
