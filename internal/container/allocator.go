// Package container holds the core, domain-agnostic containers every
// higher layer of the optimizer is built from: an arena-backed list that
// hands out dense integer references, a block-paged FIFO queue, a chained
// hash map ("hash-tree" in the sense that collisions within a bucket are
// kept as a small ordered chain rather than rehashed), a hash set built on
// top of it, a bit-set, and a string pool.
//
// Every constructor here takes an *Allocator as its first argument (spec
// §5: "a memory allocator handle is threaded through every allocation
// point"). Allocator itself never fails an allocation — Go's runtime
// allocator backs it — but it keeps running byte/object counters so the
// driver can report a build summary and so tests can assert a pass did not
// leak references.
package container

import "fmt"

// Allocator is the explicit memory-accounting handle threaded through
// every container constructor and mutator in this package and its callers.
type Allocator struct {
	objects uint64
	bytes   uint64
}

// NewAllocator creates a fresh accounting handle. One per compilation
// session (driver.Session owns it; it is released with the session).
func NewAllocator() *Allocator {
	return &Allocator{}
}

func (a *Allocator) account(n, size int) {
	a.objects += uint64(n)
	a.bytes += uint64(n * size)
}

// Stats returns the running totals for diagnostics.
func (a *Allocator) Stats() (objects, bytes uint64) {
	return a.objects, a.bytes
}

func (a *Allocator) String() string {
	return fmt.Sprintf("%d objects, %d bytes", a.objects, a.bytes)
}
