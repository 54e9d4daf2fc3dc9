package ssa

import "cc/internal/container"

// Trace walks every instruction that may contribute to externally
// observable behavior (spec §4.3): starting from the entry block's
// control-flow list, it follows jump/branch/branch-compare targets,
// inline-asm jump targets, and — the first time an indirect jump is
// seen — every block carrying a public label plus any block-label
// immediate already encountered. Every visited instruction's operands
// (including phi links, call arguments/return-space, and inline-asm
// parameters) are enqueued in turn. cb is called exactly once per
// visited ref.
func (f *Function) Trace(cb func(Ref)) error {
	visitedBlock := make(map[BlockID]bool)
	visitedInstr := make(map[Ref]bool)
	blockQ := container.NewQueue[BlockID](f.Alloc)
	instrQ := container.NewQueue[Ref](f.Alloc)
	indirectSeen := false

	blockQ.Push(f.Entry)

	visit := func(ref Ref) error {
		if ref == container.RefNone || visitedInstr[ref] {
			return nil
		}
		visitedInstr[ref] = true
		cb(ref)

		in, err := f.instr(ref)
		if err != nil {
			return err
		}
		for _, p := range in.Op.OperandPtrs() {
			instrQ.Push(*p)
		}
		switch in.Op.Code {
		case OpPhi:
			if phi, err := f.PhiOf(in.Op.Phi); err == nil {
				for _, v := range phi.Links {
					instrQ.Push(v)
				}
			}
		case OpCall:
			if call, err := f.CallOf(in.Op.Call); err == nil {
				for _, a := range call.Args {
					instrQ.Push(a)
				}
				instrQ.Push(call.ReturnSpace)
			}
		case OpInlineAsm:
			if node, err := f.InlineAsmOf(in.Op.InlineAsm); err == nil {
				for _, p := range node.Params {
					instrQ.Push(p.ReadRef)
					instrQ.Push(p.LoadStoreRef)
				}
				for _, target := range node.JumpTargets {
					blockQ.Push(target)
				}
			}
		}
		switch in.Op.Code {
		case OpJump:
			blockQ.Push(in.Op.Target)
		case OpBranch, OpBranchCompare:
			blockQ.Push(in.Op.Target)
			blockQ.Push(in.Op.Alt)
		case OpIndirectJump:
			if !indirectSeen {
				indirectSeen = true
				f.Blocks.Each(func(id BlockID, b *Block) {
					if len(b.PublicLabels) > 0 {
						blockQ.Push(id)
					}
				})
				for ref2 := range visitedInstr {
					if in2, err := f.instr(ref2); err == nil && in2.Op.Code == OpImmBlockLabel {
						blockQ.Push(in2.Op.ImmBlock)
					}
				}
			}
		}
		return nil
	}

	for !blockQ.Empty() {
		b, ok := blockQ.PopFirst()
		if !ok {
			break
		}
		if visitedBlock[b] {
			continue
		}
		visitedBlock[b] = true
		list, err := f.ControlList(b)
		if err != nil {
			return err
		}
		for _, ref := range list {
			instrQ.Push(ref)
		}
		for !instrQ.Empty() {
			ref, ok := instrQ.PopFirst()
			if !ok {
				break
			}
			if err := visit(ref); err != nil {
				return err
			}
		}
	}
	return nil
}
