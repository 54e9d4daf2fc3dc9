package ir

import (
	"testing"

	"cc/internal/container"
)

func int32Type() NamedType {
	return NamedType{Entries: []TypeEntry{{Opcode: TEInt, Alignment: 4, Param: 32}}}
}

func TestCompactSymbolLivenessTrace(t *testing.T) {
	// f is exported and calls g; g references string literal s; h is
	// internal and unreferenced. After compaction f, g, and s remain;
	// h is removed.
	m := NewModule(container.NewAllocator())
	i32 := m.Types.Alloc(int32Type())

	m.Functions["f"] = &Function{Name: "f", Blocks: []Block{{Label: "entry", Instrs: []Instr{
		{Opcode: "call", TypeRefs: []TypeID{i32}, SymbolRefs: []string{"g"}},
	}}}}
	m.Functions["g"] = &Function{Name: "g", Blocks: []Block{{Label: "entry", Instrs: []Instr{
		{Opcode: "load_addr", TypeRefs: []TypeID{i32}, SymbolRefs: []string{"s"}},
	}}}}
	m.Functions["h"] = &Function{Name: "h", Blocks: []Block{{Label: "entry"}}}
	hOnlyType := m.Types.Alloc(NamedType{Entries: []TypeEntry{{Opcode: TEFloat, Alignment: 8, Param: 64}}})
	m.Functions["h"].Blocks[0].Instrs = []Instr{{Opcode: "nop", TypeRefs: []TypeID{hOnlyType}}}

	m.Data["s"] = &Data{Type: i32, Init: map[int]DataInit{0: {Kind: DataString, Str: "hi"}}}

	m.Identifiers["f"] = &Identifier{Scope: ScopeExport}
	m.Identifiers["g"] = &Identifier{Scope: ScopeLocal}
	m.Identifiers["h"] = &Identifier{Scope: ScopeLocal}
	m.Identifiers["s"] = &Identifier{Scope: ScopeLocal}

	if err := Compact(m); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	for _, want := range []string{"f", "g"} {
		if _, ok := m.Functions[want]; !ok {
			t.Errorf("expected function %q to survive compaction", want)
		}
	}
	if _, ok := m.Functions["h"]; ok {
		t.Error("expected unreferenced function h to be removed")
	}
	if _, ok := m.Data["s"]; !ok {
		t.Error("expected data s to survive (referenced by g)")
	}
	if _, ok := m.Identifiers["h"]; ok {
		t.Error("expected identifier h to be removed")
	}
	if m.Types.Len() != 1 {
		t.Errorf("expected only the int32 type to survive (h's float type was dropped), got %d types", m.Types.Len())
	}
}

func TestCompactDeduplicatesStructurallyEqualTypes(t *testing.T) {
	m := NewModule(container.NewAllocator())
	a := m.Types.Alloc(int32Type())
	b := m.Types.Alloc(int32Type()) // structurally identical, distinct id
	m.Functions["f"] = &Function{Name: "f", Blocks: []Block{{Instrs: []Instr{
		{Opcode: "nop", TypeRefs: []TypeID{a}},
		{Opcode: "nop", TypeRefs: []TypeID{b}},
	}}}}
	m.Identifiers["f"] = &Identifier{Scope: ScopeExport}

	if err := Compact(m); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if m.Types.Len() != 1 {
		t.Fatalf("expected the two equal types to collapse to one, got %d", m.Types.Len())
	}
	refs := m.Functions["f"].Blocks[0].Instrs
	if refs[0].TypeRefs[0] != refs[1].TypeRefs[0] {
		t.Fatal("expected both instructions to reference the same canonical type id")
	}
}

func TestCompactTracesPointersNestedInsideAggregateInitializers(t *testing.T) {
	// root is exported and its aggregate initializer's second field holds
	// a pointer to target, two levels down (struct-in-struct). unrelated
	// is unreferenced and must still be dropped.
	m := NewModule(container.NewAllocator())
	i32 := m.Types.Alloc(int32Type())

	m.Functions["root"] = &Function{Name: "root", Blocks: []Block{{Label: "entry"}}}
	m.Identifiers["root"] = &Identifier{Scope: ScopeExport}

	m.Data["root"] = &Data{Type: i32, Init: map[int]DataInit{
		0: {Kind: DataAggregate, Nested: []DataInit{
			{Kind: DataInteger, Int: 1},
			{Kind: DataAggregate, Nested: []DataInit{
				{Kind: DataPointer, Symbol: "target"},
			}},
		}},
	}}
	m.Data["target"] = &Data{Type: i32, Init: map[int]DataInit{0: {Kind: DataInteger, Int: 7}}}
	m.Data["unrelated"] = &Data{Type: i32, Init: map[int]DataInit{0: {Kind: DataInteger, Int: 0}}}

	m.Identifiers["target"] = &Identifier{Scope: ScopeLocal}
	m.Identifiers["unrelated"] = &Identifier{Scope: ScopeLocal}

	if err := Compact(m); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	if _, ok := m.Data["target"]; !ok {
		t.Error("expected target to survive: it is referenced by a pointer nested inside root's aggregate initializer")
	}
	if _, ok := m.Data["unrelated"]; ok {
		t.Error("expected unrelated to be dropped: nothing references it")
	}
}

func TestCompactIsIdempotent(t *testing.T) {
	m := NewModule(container.NewAllocator())
	i32 := m.Types.Alloc(int32Type())
	m.Functions["f"] = &Function{Name: "f", Blocks: []Block{{Instrs: []Instr{
		{Opcode: "nop", TypeRefs: []TypeID{i32}},
	}}}}
	m.Identifiers["f"] = &Identifier{Scope: ScopeExport}

	if err := Compact(m); err != nil {
		t.Fatalf("first Compact: %v", err)
	}
	typesAfterFirst := m.Types.Len()
	funcsAfterFirst := len(m.Functions)

	if err := Compact(m); err != nil {
		t.Fatalf("second Compact: %v", err)
	}
	if m.Types.Len() != typesAfterFirst || len(m.Functions) != funcsAfterFirst {
		t.Fatal("expected a second compaction of an already-compact module to be a no-op")
	}
}
