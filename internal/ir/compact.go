package ir

import (
	"cc/internal/ccerrors"
	"cc/internal/container"
)

// Compact is the last step before code emission (spec §4.2). It first
// traces symbol reachability from exported/constructor/destructor/
// global-inline-asm roots and drops everything unreached, then
// deduplicates named types and drops any type no longer referenced by a
// retained instruction, data initializer, or inline-asm parameter.
//
// Running reachability before type dedup means phase two's "referenced by
// a retained object" check only has to look at what's left after dead
// functions and data are gone — dedup never has to special-case an
// about-to-be-deleted reference. No partial compaction is committed: a
// dangling reference discovered along the way aborts with an
// internal-state error and Module is left unmodified.
func Compact(m *Module) error {
	if err := traceAndDropDeadSymbols(m); err != nil {
		return err
	}
	if err := dedupAndDropUnusedTypes(m); err != nil {
		return err
	}
	return nil
}

// traceAndDropDeadSymbols implements the worklist in spec §4.2: roots are
// exported identifiers (including weak exports), constructors,
// destructors, and every module-level inline-asm parameter/jump target.
// Visiting a symbol adds the symbols its function body references, its
// data initializer's pointer/string-pointer entries reference (including
// ones nested inside an aggregate initializer, walked recursively), and
// its identifier's alias.
func traceAndDropDeadSymbols(m *Module) error {
	live := make(map[string]bool)
	var worklist []string

	mark := func(name string) {
		if name == "" || live[name] {
			return
		}
		live[name] = true
		worklist = append(worklist, name)
	}

	for name, id := range m.Identifiers {
		if id.Scope == ScopeExport || id.Scope == ScopeExportWeak {
			mark(name)
		}
	}
	for _, name := range m.Constructors {
		mark(name)
	}
	for _, name := range m.Destructors {
		mark(name)
	}
	var asmErr error
	m.InlineAsms.Each(func(_ TypeID, rec *InlineAsmRecord) {
		for _, p := range rec.Parameters {
			mark(p)
		}
		for _, t := range rec.JumpTargets {
			mark(t)
		}
	})
	if asmErr != nil {
		return asmErr
	}

	for len(worklist) > 0 {
		name := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if fn, ok := m.Functions[name]; ok {
			for _, b := range fn.Blocks {
				for _, in := range b.Instrs {
					for _, s := range in.SymbolRefs {
						mark(s)
					}
					for _, asmID := range in.InlineAsmRefs {
						rec, err := m.InlineAsms.Get(asmID)
						if err != nil {
							return ccerrors.NewInternal("function %q references unknown inline-asm id %d: %v", name, asmID, err)
						}
						for _, p := range rec.Parameters {
							mark(p)
						}
						for _, t := range rec.JumpTargets {
							mark(t)
						}
					}
				}
			}
		}
		if d, ok := m.Data[name]; ok {
			for _, init := range d.Init {
				markDataInitSymbols(init, mark)
			}
		}
		if id, ok := m.Identifiers[name]; ok && id.Alias != "" {
			mark(id.Alias)
		}
	}

	for name := range m.Functions {
		if !live[name] {
			delete(m.Functions, name)
		}
	}
	for name := range m.Data {
		if !live[name] {
			delete(m.Data, name)
		}
	}
	for name := range m.Identifiers {
		if !live[name] {
			delete(m.Identifiers, name)
		}
	}
	return nil
}

// markDataInitSymbols marks every symbol one initializer value references,
// recursing into DataAggregate's Nested members — a pointer or
// string-pointer can be buried arbitrarily deep inside a struct/array
// initializer (e.g. `static struct s { int *p; } x = {&other};`), not
// just at a Data object's top-level Init slots.
func markDataInitSymbols(init DataInit, mark func(string)) {
	switch init.Kind {
	case DataPointer, DataStringPointer:
		mark(init.Symbol)
	case DataAggregate:
		for _, nested := range init.Nested {
			markDataInitSymbols(nested, mark)
		}
	}
}

// dedupAndDropUnusedTypes implements type deduplication (phase 1: replace
// every type reference with the canonical id of the first structurally
// equal type seen) followed by dropping types no retained object
// references (phase 2).
func dedupAndDropUnusedTypes(m *Module) error {
	n := m.Types.Len()
	canonical := make([]TypeID, n)
	seenByHash := make(map[uint64][]TypeID)

	for id := TypeID(0); int(id) < n; id++ {
		t, err := m.Types.Get(id)
		if err != nil {
			return ccerrors.NewInternal("type table corrupt at id %d: %v", id, err)
		}
		h := t.Hash()
		canonical[id] = id
		for _, cand := range seenByHash[h] {
			candType, err := m.Types.Get(cand)
			if err != nil {
				return ccerrors.NewInternal("type table corrupt at id %d: %v", cand, err)
			}
			if t.Equal(candType) {
				canonical[id] = cand
				break
			}
		}
		if canonical[id] == id {
			seenByHash[h] = append(seenByHash[h], id)
		}
	}

	remapType := func(id TypeID) TypeID {
		if int(id) < 0 || int(id) >= n {
			return id
		}
		return canonical[id]
	}

	for _, fn := range m.Functions {
		for bi := range fn.Blocks {
			for ii := range fn.Blocks[bi].Instrs {
				refs := fn.Blocks[bi].Instrs[ii].TypeRefs
				for i, t := range refs {
					refs[i] = remapType(t)
				}
			}
		}
	}
	for _, d := range m.Data {
		d.Type = remapType(d.Type)
	}

	referenced := make(map[TypeID]bool)
	for _, fn := range m.Functions {
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				for _, t := range in.TypeRefs {
					referenced[t] = true
				}
			}
		}
	}
	for _, d := range m.Data {
		referenced[d.Type] = true
	}

	newIDs := make([]TypeID, n)
	newTypes := container.NewArena[NamedType](m.Alloc)
	for id := TypeID(0); int(id) < n; id++ {
		if canonical[id] != id || !referenced[id] {
			continue
		}
		t, _ := m.Types.Get(id)
		newIDs[id] = newTypes.Alloc(*t)
	}
	// Second pass: every id (including ones that were merged away) maps
	// through its canonical representative's new id.
	for id := TypeID(0); int(id) < n; id++ {
		newIDs[id] = newIDs[canonical[id]]
	}
	remapToCompacted := func(id TypeID) TypeID {
		if int(id) < 0 || int(id) >= n {
			return id
		}
		return newIDs[id]
	}
	for _, fn := range m.Functions {
		for bi := range fn.Blocks {
			for ii := range fn.Blocks[bi].Instrs {
				refs := fn.Blocks[bi].Instrs[ii].TypeRefs
				for i, t := range refs {
					refs[i] = remapToCompacted(t)
				}
			}
		}
	}
	for _, d := range m.Data {
		d.Type = remapToCompacted(d.Type)
	}
	m.Types = newTypes
	return nil
}
