package pipeline

import (
	"cc/internal/analysis"
	"cc/internal/container"
	"cc/internal/ssa"
)

// BlockMerge implements spec §4.6.1: it folds a block into its
// exclusive-predecessor jump source, and folds constant-only passthrough
// branch sides into the branching block, repeating until neither
// transformation applies anywhere in f. Each individual fold is applied
// against a freshly rebuilt Structure, since one fold can change which
// other blocks are exclusive predecessors or passthrough candidates.
func BlockMerge(f *ssa.Function) (bool, error) {
	anyChanged := false
	for {
		s, err := analysis.Build(f)
		if err != nil {
			return anyChanged, err
		}
		did, err := applyOneMerge(f, s)
		if err != nil {
			return anyChanged, err
		}
		if !did {
			return anyChanged, nil
		}
		anyChanged = true
	}
}

func applyOneMerge(f *ssa.Function, s *analysis.Structure) (bool, error) {
	for _, b := range s.ReversePostOrder() {
		term, ok, err := f.Terminator(b)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		in, err := f.Get(term)
		if err != nil {
			return false, err
		}
		switch in.Op.Code {
		case ssa.OpJump:
			did, err := tryMergeExclusiveJump(f, s, b, term)
			if err != nil || did {
				return did, err
			}
		case ssa.OpBranch, ssa.OpBranchCompare:
			did, err := tryMergePassthroughSides(f, s, b, term)
			if err != nil || did {
				return did, err
			}
		}
	}
	return false, nil
}

func tryMergeExclusiveJump(f *ssa.Function, s *analysis.Structure, blockID, term ssa.Ref) (bool, error) {
	in, err := f.Get(term)
	if err != nil {
		return false, err
	}
	target := in.Op.Target
	if !s.BlockExclusiveDirectPredecessor(blockID, target) {
		return false, nil
	}
	if err := s.RedirectEdges(target, blockID); err != nil {
		return false, err
	}
	if err := f.DropControl(term); err != nil {
		return false, err
	}
	if err := f.DropInstr(term); err != nil {
		return false, err
	}
	if err := f.MergeBlockInto(target, blockID); err != nil {
		return false, err
	}
	if err := f.RedirectBlockReferences(target, blockID); err != nil {
		return false, err
	}
	return true, nil
}

// passthroughTarget reports whether side is a constant-only block whose
// sole control instruction is a jump, and is exclusively reached from
// from; it returns that jump's target and the jump's own ref when so.
func passthroughTarget(f *ssa.Function, s *analysis.Structure, from, side ssa.BlockID) (target ssa.BlockID, jumpRef ssa.Ref, ok bool, err error) {
	if preds := s.Predecessors(side); len(preds) != 1 || preds[0] != from {
		return ssa.BlockNone, container.RefNone, false, nil
	}
	ctrl, err := f.ControlList(side)
	if err != nil {
		return ssa.BlockNone, container.RefNone, false, err
	}
	if len(ctrl) != 1 {
		return ssa.BlockNone, container.RefNone, false, nil
	}
	jumpRef = ctrl[0]
	jin, err := f.Get(jumpRef)
	if err != nil {
		return ssa.BlockNone, container.RefNone, false, err
	}
	if jin.Op.Code != ssa.OpJump {
		return ssa.BlockNone, container.RefNone, false, nil
	}
	data, err := f.DataList(side)
	if err != nil {
		return ssa.BlockNone, container.RefNone, false, err
	}
	for _, ref := range data {
		if ref == jumpRef {
			continue
		}
		din, err := f.Get(ref)
		if err != nil {
			return ssa.BlockNone, container.RefNone, false, err
		}
		if ssa.FamilyOf(din.Op.Code) != ssa.FamilyImmediate {
			return ssa.BlockNone, container.RefNone, false, nil
		}
	}
	return jin.Op.Target, jumpRef, true, nil
}

func tryMergePassthroughSides(f *ssa.Function, s *analysis.Structure, blockID, term ssa.Ref) (bool, error) {
	in, err := f.Get(term)
	if err != nil {
		return false, err
	}
	tt, ttJump, ttOK, err := passthroughTarget(f, s, blockID, in.Op.Target)
	if err != nil {
		return false, err
	}
	tf, tfJump, tfOK, err := passthroughTarget(f, s, blockID, in.Op.Alt)
	if err != nil {
		return false, err
	}
	effectiveTrue, effectiveFalse := in.Op.Target, in.Op.Alt
	if ttOK {
		effectiveTrue = tt
	}
	if tfOK {
		effectiveFalse = tf
	}
	if effectiveTrue == effectiveFalse {
		return false, nil
	}
	changed := false
	if ttOK {
		if err := foldPassthroughSide(f, in.Op.Target, ttJump, blockID); err != nil {
			return false, err
		}
		in.Op.Target = tt
		changed = true
	}
	if tfOK {
		if err := foldPassthroughSide(f, in.Op.Alt, tfJump, blockID); err != nil {
			return false, err
		}
		in.Op.Alt = tf
		changed = true
	}
	return changed, nil
}

// foldPassthroughSide drops side's own (now redundant) jump terminator
// before splicing its constant-producing instructions into blockID, so
// blockID ends up with exactly one terminator afterward.
func foldPassthroughSide(f *ssa.Function, side, jumpRef, blockID ssa.BlockID) error {
	if err := f.DropControl(jumpRef); err != nil {
		return err
	}
	if err := f.DropInstr(jumpRef); err != nil {
		return err
	}
	return f.MergeBlockInto(side, blockID)
}
