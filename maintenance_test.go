package tinylfu

import "testing"

func newTestMaintainer(maximum int64) (*maintainer[string, int], *policy[string, int]) {
	p := newPolicy[string, int](maximum)
	wheel := newTimerWheel[string, int](0)
	reads := newReadBuffer[string, int]()
	writes := newWriteBuffer[string, int](16)

	m := newMaintainer[string, int](reads, writes, p, wheel, func() int64 { return 0 }, func(n *node[string, int], cause RemovalCause) {})
	return m, p
}

func TestMaintenanceDrainsWritesIntoPolicy(t *testing.T) {
	m, p := newTestMaintainer(10)
	n := newNode[string, int]("k", 1, 1, 1, 0)
	m.writes.offer(writeTask[string, int]{kind: taskAdded, node: n})

	m.runPass()

	if n.queueType() != queueEden {
		t.Fatalf("node queue after pass = %v, want EDEN", n.queueType())
	}
	if p.weightedSize != 1 {
		t.Fatalf("weightedSize after pass = %d, want 1", p.weightedSize)
	}
}

func TestMaintenanceStateMachineReturnsToIdleAfterRun(t *testing.T) {
	m, _ := newTestMaintainer(10)
	if maintenanceState(m.state.Load()) != stateIdle {
		t.Fatalf("initial state = %v, want idle", m.state.Load())
	}

	m.scheduleOrRun()
	if maintenanceState(m.state.Load()) != stateIdle {
		t.Fatalf("state after a completed run = %v, want idle again", m.state.Load())
	}
}

func TestMaintenanceEvictsOverCapacity(t *testing.T) {
	m, p := newTestMaintainer(2)
	var removed []string
	m.remove = func(n *node[string, int], cause RemovalCause) { removed = append(removed, n.key) }

	for i, k := range []string{"a", "b", "c"} {
		n := newNode[string, int](k, uint64(i+1), 1, i, 0)
		m.writes.offer(writeTask[string, int]{kind: taskAdded, node: n})
	}
	m.runPass()

	if p.weightedSize > p.maximum {
		t.Fatalf("weightedSize %d exceeds maximum %d", p.weightedSize, p.maximum)
	}
	if len(removed) == 0 {
		t.Fatal("expected at least one eviction callback once capacity was exceeded")
	}
}
