package pipeline

import (
	"cc/internal/analysis"
	"cc/internal/ssa"
)

// LocalAllocSink implements spec §4.6.5: every alloc-local instruction is
// moved to the closest common dominator of all its use sites — a phi use
// counts its link's predecessor block, not the phi's own block — when
// that dominator differs from where the allocation currently sits. This
// shrinks the local's live range and gives the register allocator a
// tighter window to work with.
func LocalAllocSink(f *ssa.Function) (bool, error) {
	s, err := analysis.Build(f)
	if err != nil {
		return false, err
	}

	changed := false
	var walkErr error
	f.Instrs.Each(func(ref ssa.Ref, in *ssa.Instr) {
		if walkErr != nil {
			return
		}
		if in.Block == ssa.BlockNone || in.Op.Code != ssa.OpAllocLocal {
			return
		}

		ccd, err := useSiteDominator(f, s, ref)
		if err != nil {
			walkErr = err
			return
		}
		if ccd == ssa.BlockNone || ccd == in.Block {
			return
		}
		if err := f.MoveInstruction(ref, ccd); err != nil {
			walkErr = err
			return
		}
		changed = true
	})
	return changed, walkErr
}

func useSiteDominator(f *ssa.Function, s *analysis.Structure, ref ssa.Ref) (ssa.BlockID, error) {
	instrs, phis, calls, asms := f.UsesOf(ref)

	ccd := ssa.BlockNone
	join := func(b ssa.BlockID) { ccd = s.ClosestCommonDominator(ccd, b) }

	for _, user := range instrs {
		uin, err := f.Get(user)
		if err != nil {
			return ssa.BlockNone, err
		}
		join(uin.Block)
	}
	for _, callID := range calls {
		call, err := f.CallOf(callID)
		if err != nil {
			return ssa.BlockNone, err
		}
		cin, err := f.Get(call.Output)
		if err != nil {
			return ssa.BlockNone, err
		}
		join(cin.Block)
	}
	for _, asmID := range asms {
		node, err := f.InlineAsmOf(asmID)
		if err != nil {
			return ssa.BlockNone, err
		}
		nin, err := f.Get(node.Output)
		if err != nil {
			return ssa.BlockNone, err
		}
		join(nin.Block)
	}
	for _, phiID := range phis {
		phi, err := f.PhiOf(phiID)
		if err != nil {
			return ssa.BlockNone, err
		}
		for pred, val := range phi.Links {
			if val == ref {
				join(pred)
			}
		}
	}
	return ccd, nil
}
