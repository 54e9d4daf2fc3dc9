package container

import "cc/internal/ccerrors"

// Ref is a dense, monotonically increasing reference into an Arena.
// RefNone (-1) never designates an entry; the zero Ref is the first one.
type Ref int32

const RefNone Ref = -1

// Arena is an append-only list addressed by Ref. It is the one place in
// the optimizer allowed to hand out the integer ids that stand in for
// pointers everywhere else (spec §9: "cyclic references ... broken by
// using dense integer ids keyed into arenas, never pointer cycles").
// Entries are never physically removed — callers that need "deleted"
// semantics mark the payload itself (e.g. the SSA container's dropped
// block-id sentinel) and Arena keeps serving the slot so the reference
// is never reused.
type Arena[T any] struct {
	alloc   *Allocator
	entries []T
}

// NewArena creates an arena that accounts its growth against alloc.
func NewArena[T any](alloc *Allocator) *Arena[T] {
	return &Arena[T]{alloc: alloc}
}

// Alloc appends value and returns its new, permanent Ref.
func (a *Arena[T]) Alloc(value T) Ref {
	ref := Ref(len(a.entries))
	a.entries = append(a.entries, value)
	var zero T
	a.alloc.account(1, sizeofHint(zero))
	return ref
}

// Get returns a pointer to the entry at ref so callers can mutate it in
// place; it is an out-of-bounds error if ref is out of range.
func (a *Arena[T]) Get(ref Ref) (*T, error) {
	if ref < 0 || int(ref) >= len(a.entries) {
		return nil, ccerrors.New(ccerrors.OutOfBounds, "arena ref %d out of range [0,%d)", ref, len(a.entries))
	}
	return &a.entries[ref], nil
}

// Len returns the number of entries ever allocated (including logically
// dropped ones — dropping never shrinks the arena).
func (a *Arena[T]) Len() int { return len(a.entries) }

// Each visits every entry in allocation order, logically dropped ones
// included.
func (a *Arena[T]) Each(fn func(Ref, *T)) {
	for i := range a.entries {
		fn(Ref(i), &a.entries[i])
	}
}

func sizeofHint(v interface{}) int {
	// A coarse accounting unit; exactness is not load-bearing, only the
	// running total reported in build summaries.
	return 32
}
