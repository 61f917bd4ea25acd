package tinylfu

import "testing"

func TestLinkedDequeAddAndOrder(t *testing.T) {
	d := newLinkedDeque[string, int](accessOrderLinkage[string, int]())

	n1 := newNode[string, int]("a", 1, 1, 1, 0)
	n2 := newNode[string, int]("b", 2, 1, 2, 0)
	n3 := newNode[string, int]("c", 3, 1, 3, 0)

	d.AddLast(n1)
	d.AddLast(n2)
	d.AddFirst(n3)

	if d.Len() != 3 {
		t.Fatalf("len = %d, want 3", d.Len())
	}
	if d.PeekFirst() != n3 {
		t.Fatalf("peekFirst = %v, want n3", d.PeekFirst().key)
	}
	if d.PeekLast() != n2 {
		t.Fatalf("peekLast = %v, want n2", d.PeekLast().key)
	}

	var order []string
	d.Do(func(n *node[string, int]) { order = append(order, n.key) })
	want := []string{"c", "a", "b"}
	for i, k := range want {
		if order[i] != k {
			t.Fatalf("order[%d] = %s, want %s", i, order[i], k)
		}
	}
}

func TestLinkedDequeRemove(t *testing.T) {
	d := newLinkedDeque[string, int](accessOrderLinkage[string, int]())
	n1 := newNode[string, int]("a", 1, 1, 1, 0)
	n2 := newNode[string, int]("b", 2, 1, 2, 0)
	n3 := newNode[string, int]("c", 3, 1, 3, 0)
	d.AddLast(n1)
	d.AddLast(n2)
	d.AddLast(n3)

	d.Remove(n2)
	if d.Len() != 2 {
		t.Fatalf("len = %d, want 2", d.Len())
	}
	if d.PeekFirst() != n1 || d.PeekLast() != n3 {
		t.Fatalf("unexpected ends after remove")
	}

	d.Remove(n1)
	d.Remove(n3)
	if d.Len() != 0 || d.PeekFirst() != nil || d.PeekLast() != nil {
		t.Fatalf("deque not empty after removing all nodes")
	}
}

func TestLinkedDequeMoveToFrontAndBack(t *testing.T) {
	d := newLinkedDeque[string, int](accessOrderLinkage[string, int]())
	n1 := newNode[string, int]("a", 1, 1, 1, 0)
	n2 := newNode[string, int]("b", 2, 1, 2, 0)
	n3 := newNode[string, int]("c", 3, 1, 3, 0)
	d.AddLast(n1)
	d.AddLast(n2)
	d.AddLast(n3)

	d.MoveToFront(n3)
	if d.PeekFirst() != n3 {
		t.Fatalf("moveToFront did not relink head")
	}
	if d.Len() != 3 {
		t.Fatalf("len changed across moveToFront: %d", d.Len())
	}

	d.MoveToBack(n3)
	if d.PeekLast() != n3 {
		t.Fatalf("moveToBack did not relink tail")
	}
	if d.Len() != 3 {
		t.Fatalf("len changed across moveToBack: %d", d.Len())
	}
}
