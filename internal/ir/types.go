// Package ir is the front end's delivery format: named types, function
// declarations, function bodies as linear instruction blocks, data
// initializers, an inline-assembly table, and the symbol table that ties
// names to all of the above (spec §3). It is produced by the AST-to-IR
// lowering (out of scope here — treated as an external collaborator) and
// consumed by module compaction (spec §4.2) and by the SSA lowering that
// feeds package ssa.
package ir

// TypeEntryOp is the opcode of one entry within a named type's layout
// sequence (spec §3: "an ordered sequence of type-entries with opcode,
// alignment, param, atomic flag").
type TypeEntryOp int

const (
	TEInt TypeEntryOp = iota
	TEFloat
	TEPointer
	TEArray
	TEStruct
	TEUnion
	TEFunction
	TEBuiltin
)

// TypeEntry is one layout step of a NamedType.
type TypeEntry struct {
	Opcode    TypeEntryOp
	Alignment int
	Param     int64
	Atomic    bool
}

// NamedType is the module's notion of a declared C type: a named,
// ordered sequence of layout entries. Two NamedTypes are structurally
// equal (and therefore a deduplication candidate) iff they have the same
// length and agree entry-by-entry.
type NamedType struct {
	Entries []TypeEntry
}

// Equal reports structural equality, the relation module compaction's
// type deduplication collapses onto canonical ids.
func (t *NamedType) Equal(other *NamedType) bool {
	if len(t.Entries) != len(other.Entries) {
		return false
	}
	for i, e := range t.Entries {
		o := other.Entries[i]
		if e.Opcode != o.Opcode || e.Alignment != o.Alignment || e.Param != o.Param || e.Atomic != o.Atomic {
			return false
		}
	}
	return true
}

// Hash is the stable structural hash from spec §4.2: combine
// (opcode<<8 | alignment) XOR param across the sequence with multiplier
// 37. Atomic does not participate in the mix (the spec's formula omits
// it); Equal still checks it, so two non-equal types may collide — the
// dedup pass always confirms with Equal before merging.
func (t *NamedType) Hash() uint64 {
	var h uint64
	for _, e := range t.Entries {
		mixed := (uint64(e.Opcode)<<8 | uint64(e.Alignment)) ^ uint64(e.Param)
		h = h*37 + mixed
	}
	return h
}
