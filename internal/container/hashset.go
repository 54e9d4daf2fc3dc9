package container

// HashSet is a HashTree specialised to track membership only, used for
// the SSA use index's four per-reference consumer sets.
type HashSet[K comparable] struct {
	tree *HashTree[K, struct{}]
}

// NewHashSet creates an empty set using hash as the bucket function.
func NewHashSet[K comparable](alloc *Allocator, hash func(K) uint64) *HashSet[K] {
	return &HashSet[K]{tree: NewHashTree[K, struct{}](alloc, hash)}
}

func (s *HashSet[K]) Add(key K) {
	_ = s.tree.Insert(key, struct{}{}, false)
}

func (s *HashSet[K]) Remove(key K) {
	s.tree.Delete(key)
}

func (s *HashSet[K]) Has(key K) bool {
	return s.tree.Has(key)
}

func (s *HashSet[K]) Len() int { return s.tree.Len() }

func (s *HashSet[K]) Each(fn func(K)) {
	s.tree.Each(func(k K, _ struct{}) { fn(k) })
}

// ToSlice materialises the set's members; order is unspecified.
func (s *HashSet[K]) ToSlice() []K {
	out := make([]K, 0, s.tree.Len())
	s.tree.Each(func(k K, _ struct{}) { out = append(out, k) })
	return out
}
