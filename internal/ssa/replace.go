package ssa

import "cc/internal/container"

// ReplaceReferences rewrites every recorded consumer of from (plain
// instruction operands, phi links, call arguments/return-space, inline-asm
// parameters) to read to instead, updating the use index incrementally so
// it stays a functional image of the rewritten operands (spec §3
// invariant 4, §4.3). It is the caller's responsibility that to dominates
// every rewritten use; GVN verifies that explicitly before calling this,
// hoisting passes rely on having arranged it by construction.
func (f *Function) ReplaceReferences(to, from Ref) error {
	if to == from {
		return nil
	}
	u, ok := f.use[from]
	if !ok {
		return nil
	}

	for _, user := range u.Instrs.ToSlice() {
		in, err := f.instr(user)
		if err != nil {
			return err
		}
		for _, p := range in.Op.OperandPtrs() {
			if *p == from {
				*p = to
			}
		}
		f.usesOf(to).Instrs.Add(user)
	}
	u.Instrs = container.NewHashSet[Ref](f.Alloc, container.HashInt32)

	for _, phiID := range u.Phis.ToSlice() {
		phi, err := f.Phis.Get(phiID)
		if err != nil {
			return err
		}
		for pred, val := range phi.Links {
			if val == from {
				phi.Links[pred] = to
				f.usesOf(to).Phis.Add(phiID)
			}
		}
	}
	u.Phis = container.NewHashSet[PhiRef](f.Alloc, container.HashInt32)

	for _, callID := range u.Calls.ToSlice() {
		call, err := f.Calls.Get(callID)
		if err != nil {
			return err
		}
		for i, a := range call.Args {
			if a == from {
				call.Args[i] = to
				f.usesOf(to).Calls.Add(callID)
			}
		}
		if call.ReturnSpace == from {
			call.ReturnSpace = to
			f.usesOf(to).Calls.Add(callID)
		}
		in, err := f.instr(call.Output)
		if err == nil && in.Op.HasIndirect && in.Op.Indirect == from {
			in.Op.Indirect = to
			f.usesOf(to).Calls.Add(callID)
		}
	}
	u.Calls = container.NewHashSet[CallRef](f.Alloc, container.HashInt32)

	for _, nodeID := range u.InlineAsms.ToSlice() {
		node, err := f.InlineAsms.Get(nodeID)
		if err != nil {
			return err
		}
		for i, p := range node.Params {
			if p.ReadRef == from {
				node.Params[i].ReadRef = to
				f.usesOf(to).InlineAsms.Add(nodeID)
			}
			if p.LoadStoreRef == from {
				node.Params[i].LoadStoreRef = to
				f.usesOf(to).InlineAsms.Add(nodeID)
			}
		}
	}
	u.InlineAsms = container.NewHashSet[InlineAsmNodeRef](f.Alloc, container.HashInt32)

	delete(f.use, from)
	return nil
}

// UsesOf returns the live consumer sets for ref, for passes and tests
// that need to inspect use/def relationships directly (e.g. dominance
// verification, the round-trip property in spec §8).
func (f *Function) UsesOf(ref Ref) (instrs []Ref, phis []PhiRef, calls []CallRef, asms []InlineAsmNodeRef) {
	u, ok := f.use[ref]
	if !ok {
		return nil, nil, nil, nil
	}
	return u.Instrs.ToSlice(), u.Phis.ToSlice(), u.Calls.ToSlice(), u.InlineAsms.ToSlice()
}
