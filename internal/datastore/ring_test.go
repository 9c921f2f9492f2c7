package datastore

import "testing"

func TestRing_BasicPushPop(t *testing.T) {
	r := NewRing[int](3)
	if r.Len() != 0 {
		t.Fatalf("expected empty ring, got len %d", r.Len())
	}
	r.Push(1)
	r.Push(2)
	if r.Len() != 2 {
		t.Fatalf("expected len 2, got %d", r.Len())
	}
	got := r.Slice()
	want := []int{1, 2}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v in FIFO order, got %v", want, got)
	}
}

func TestRing_Overflow(t *testing.T) {
	r := NewRing[int](2)
	if _, evicted := r.Push(1); evicted {
		t.Fatalf("first push should not evict")
	}
	if _, evicted := r.Push(2); evicted {
		t.Fatalf("second push should not evict, ring is exactly at capacity")
	}
	evicted, didEvict := r.Push(3)
	if !didEvict {
		t.Fatalf("expected eviction once the ring is full")
	}
	if evicted != 1 {
		t.Fatalf("expected oldest element 1 evicted, got %d", evicted)
	}
	if r.Len() != 2 {
		t.Fatalf("expected len still capped at 2, got %d", r.Len())
	}
	got := r.Slice()
	if got[0] != 2 || got[1] != 3 {
		t.Fatalf("expected [2 3] after eviction, got %v", got)
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Push(4) // evicts 1
	r.Push(5) // evicts 2
	got := r.Slice()
	want := []int{3, 4, 5}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("expected %v after wraparound, got %v", want, got)
		}
	}
	last, ok := r.Last()
	if !ok || last != 5 {
		t.Fatalf("expected last element 5, got %d ok=%v", last, ok)
	}
	at1, ok := r.At(1)
	if !ok || at1 != 4 {
		t.Fatalf("expected At(1) == 4, got %d ok=%v", at1, ok)
	}
}

func TestRing_ReplaceLast(t *testing.T) {
	r := NewRing[int](2)
	if r.ReplaceLast(99) {
		t.Fatalf("expected ReplaceLast to fail on an empty ring")
	}
	r.Push(1)
	r.Push(2)
	if !r.ReplaceLast(20) {
		t.Fatalf("expected ReplaceLast to succeed")
	}
	got := r.Slice()
	if got[0] != 1 || got[1] != 20 {
		t.Fatalf("expected [1 20] after replacing last, got %v", got)
	}
}

func TestRing_SetCapacityGrowsPreservingOrder(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	r.Push(2)
	r.SetCapacity(4)
	if r.Cap() != 4 {
		t.Fatalf("expected capacity 4, got %d", r.Cap())
	}
	r.Push(3)
	r.Push(4)
	got := r.Slice()
	want := []int{1, 2, 3, 4}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("expected %v after growing capacity, got %v", want, got)
		}
	}
}

func TestRing_SetCapacityShrinksKeepingMostRecent(t *testing.T) {
	r := NewRing[int](4)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Push(4)
	r.SetCapacity(2)
	if r.Cap() != 2 {
		t.Fatalf("expected capacity 2, got %d", r.Cap())
	}
	got := r.Slice()
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("expected most recent [3 4] preserved, got %v", got)
	}
}

func TestRing_CapacityClampedToAtLeastOne(t *testing.T) {
	r := NewRing[int](0)
	if r.Cap() != 1 {
		t.Fatalf("expected capacity clamped to 1, got %d", r.Cap())
	}
	r.SetCapacity(-5)
	if r.Cap() != 1 {
		t.Fatalf("expected SetCapacity to also clamp to 1, got %d", r.Cap())
	}
}
