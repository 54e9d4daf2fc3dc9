package container

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue[int](NewAllocator())
	for _, v := range []int{1, 2, 3, 4, 5} {
		q.Push(v)
	}
	for _, want := range []int{1, 2, 3, 4} {
		got, ok := q.PopFirst()
		if !ok || got != want {
			t.Fatalf("PopFirst() = %d, %v; want %d, true", got, ok, want)
		}
	}
	q.Push(6)
	for _, want := range []int{5, 6} {
		got, ok := q.PopFirst()
		if !ok || got != want {
			t.Fatalf("PopFirst() = %d, %v; want %d, true", got, ok, want)
		}
	}
	if !q.Empty() {
		t.Fatal("queue should be empty after draining")
	}
	if _, ok := q.PopFirst(); ok {
		t.Fatal("PopFirst on empty queue should report false")
	}
}

func TestQueueEmptyAfterNPushesNPops(t *testing.T) {
	q := NewQueue[int](NewAllocator())
	const n = 2000 // spans multiple 512-entry pages
	for i := 0; i < n; i++ {
		q.Push(i)
	}
	for i := 0; i < n; i++ {
		got, ok := q.PopFirst()
		if !ok || got != i {
			t.Fatalf("pop %d: got %d, %v", i, got, ok)
		}
	}
	if !q.Empty() {
		t.Fatal("expected empty after equal pushes and pops")
	}
}
