package container

import "cc/internal/ccerrors"

// HashTree is a chained hash map: each bucket holds its colliding entries
// as a short ordered chain (a degenerate tree of depth 1) rather than
// rehashing into open addressing. It backs HashSet, and through it the
// SSA use-index buckets; the IR module's tables (named-type dedup,
// symbol table) are plain Go maps.
type HashTree[K comparable, V any] struct {
	alloc   *Allocator
	hash    func(K) uint64
	buckets [][]htEntry[K, V]
	count   int
}

type htEntry[K comparable, V any] struct {
	key   K
	value V
}

const htInitialBuckets = 16

// NewHashTree creates an empty map using hash as the bucket function.
func NewHashTree[K comparable, V any](alloc *Allocator, hash func(K) uint64) *HashTree[K, V] {
	return &HashTree[K, V]{
		alloc:   alloc,
		hash:    hash,
		buckets: make([][]htEntry[K, V], htInitialBuckets),
	}
}

func (h *HashTree[K, V]) bucketIndex(key K) int {
	return int(h.hash(key) % uint64(len(h.buckets)))
}

// Get returns not-found if key is absent — an expected, locally recovered
// condition per spec §7, never an internal-state error.
func (h *HashTree[K, V]) Get(key K) (V, error) {
	var zero V
	idx := h.bucketIndex(key)
	for _, e := range h.buckets[idx] {
		if e.key == key {
			return e.value, nil
		}
	}
	return zero, ccerrors.New(ccerrors.NotFound, "key not present")
}

// Has reports presence without the error-allocation cost of Get.
func (h *HashTree[K, V]) Has(key K) bool {
	idx := h.bucketIndex(key)
	for _, e := range h.buckets[idx] {
		if e.key == key {
			return true
		}
	}
	return false
}

// Insert adds key→value. If requireUnique is true and key is already
// present, it returns an already-exists error and leaves the map
// unchanged; otherwise an existing entry is overwritten.
func (h *HashTree[K, V]) Insert(key K, value V, requireUnique bool) error {
	idx := h.bucketIndex(key)
	for i, e := range h.buckets[idx] {
		if e.key == key {
			if requireUnique {
				return ccerrors.New(ccerrors.AlreadyExists, "key already present")
			}
			h.buckets[idx][i].value = value
			return nil
		}
	}
	h.buckets[idx] = append(h.buckets[idx], htEntry[K, V]{key: key, value: value})
	h.count++
	h.alloc.account(1, 32)
	if h.count > len(h.buckets)*4 {
		h.grow()
	}
	return nil
}

// Delete removes key, if present. It is not an error to delete an absent
// key (the operation is idempotent).
func (h *HashTree[K, V]) Delete(key K) {
	idx := h.bucketIndex(key)
	bucket := h.buckets[idx]
	for i, e := range bucket {
		if e.key == key {
			h.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			h.count--
			return
		}
	}
}

func (h *HashTree[K, V]) grow() {
	old := h.buckets
	h.buckets = make([][]htEntry[K, V], len(old)*2)
	for _, bucket := range old {
		for _, e := range bucket {
			idx := h.bucketIndex(e.key)
			h.buckets[idx] = append(h.buckets[idx], e)
		}
	}
}

// Len returns the number of entries in the map.
func (h *HashTree[K, V]) Len() int { return h.count }

// Each visits every entry; order is unspecified.
func (h *HashTree[K, V]) Each(fn func(K, V)) {
	for _, bucket := range h.buckets {
		for _, e := range bucket {
			fn(e.key, e.value)
		}
	}
}

// HashString is the default hash for string keys (symbol names, type
// names): FNV-1a, chosen for being allocation-free and branch-light.
func HashString(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// HashInt32 hashes a Ref/int32-shaped key with splitmix64's finalizer —
// the same mixer used by GVN's operand-pair hash (spec §4.6.2).
func HashInt32[T ~int32](x T) uint64 {
	return SplitMix64(uint64(uint32(x)))
}

// SplitMix64 is the finalizer step of the splitmix64 generator, used
// throughout the optimizer as a cheap, well-distributed integer mixer.
func SplitMix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}
