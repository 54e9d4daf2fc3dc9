package ssa

import (
	"cc/internal/ccerrors"
	"cc/internal/container"
)

// Phi owns the predecessor→value map for one phi node; its SSA value is
// the Output instruction (opcode OpPhi, Op.Phi == this record's id) that
// lives in Block.
type Phi struct {
	Block  BlockID
	Links  map[BlockID]Ref
	Output Ref
}

// NewPhi creates a phi node in block with the given predecessor links and
// returns its output Ref (an OpPhi instruction). Links' values are
// recorded in the use index as phi uses, not plain-instruction uses.
func (f *Function) NewPhi(block BlockID, links map[BlockID]Ref) (Ref, PhiRef, error) {
	id := f.Phis.Alloc(Phi{Block: block, Links: map[BlockID]Ref{}})
	phi, err := f.Phis.Get(id)
	if err != nil {
		return container.RefNone, container.RefNone, err
	}
	out, err := f.NewInstruction(block, Op{Code: OpPhi, Phi: id})
	if err != nil {
		return container.RefNone, container.RefNone, err
	}
	phi.Output = out
	b, err := f.block(block)
	if err != nil {
		return container.RefNone, container.RefNone, err
	}
	b.Phis = append(b.Phis, id)
	for pred, val := range links {
		if err := f.SetPhiLink(id, pred, val); err != nil {
			return container.RefNone, container.RefNone, err
		}
	}
	return out, id, nil
}

// SetPhiLink sets (or overwrites) the value phi receives from pred,
// updating the use index accordingly.
func (f *Function) SetPhiLink(id PhiRef, pred BlockID, val Ref) error {
	phi, err := f.Phis.Get(id)
	if err != nil {
		return ccerrors.NewInternal("unknown phi %d: %v", id, err)
	}
	if old, ok := phi.Links[pred]; ok {
		if u, ok := f.use[old]; ok {
			u.Phis.Remove(id)
		}
	}
	phi.Links[pred] = val
	if val != container.RefNone {
		f.usesOf(val).Phis.Add(id)
	}
	return nil
}

// PhiOf returns the phi record for a phi's id.
func (f *Function) PhiOf(id PhiRef) (*Phi, error) {
	p, err := f.Phis.Get(id)
	if err != nil {
		return nil, ccerrors.NewInternal("unknown phi %d: %v", id, err)
	}
	return p, nil
}

// DropPhi removes a phi's output instruction, provided nothing still
// uses the output, clears its links from the use index, and removes id
// from the owning block's Phis list. The record itself stays in the
// Phis arena.
func (f *Function) DropPhi(id PhiRef) error {
	phi, err := f.Phis.Get(id)
	if err != nil {
		return ccerrors.NewInternal("unknown phi %d: %v", id, err)
	}
	for _, val := range phi.Links {
		if val != container.RefNone {
			if u, ok := f.use[val]; ok {
				u.Phis.Remove(id)
			}
		}
	}
	if err := f.DropInstr(phi.Output); err != nil {
		return err
	}
	b, err := f.block(phi.Block)
	if err != nil {
		return err
	}
	kept := b.Phis[:0]
	for _, p := range b.Phis {
		if p != id {
			kept = append(kept, p)
		}
	}
	b.Phis = kept
	return nil
}
