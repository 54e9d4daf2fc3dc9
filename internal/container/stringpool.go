package container

// StringID is a dense reference into a StringPool.
type StringID int32

// StringPool interns strings once so the rest of the core can compare
// symbol names, section labels, and inline-asm templates by a cheap
// integer equality instead of repeated string comparison.
type StringPool struct {
	alloc  *Allocator
	byID   []string
	lookup map[string]StringID
}

func NewStringPool(alloc *Allocator) *StringPool {
	return &StringPool{alloc: alloc, lookup: make(map[string]StringID)}
}

// Intern returns the id for s, allocating a new one if s was never seen.
func (p *StringPool) Intern(s string) StringID {
	if id, ok := p.lookup[s]; ok {
		return id
	}
	id := StringID(len(p.byID))
	p.byID = append(p.byID, s)
	p.lookup[s] = id
	p.alloc.account(1, len(s))
	return id
}

// String returns the interned text for id. An out-of-range id returns ""
// — callers that hold a StringID obtained from this pool never pass one
// that wasn't returned by Intern, so this is not treated as an error path.
func (p *StringPool) String(id StringID) string {
	if int(id) < 0 || int(id) >= len(p.byID) {
		return ""
	}
	return p.byID[id]
}
