package ssa

// RedirectBlockReferences rewrites every plain control-flow target that
// currently names from (jump/branch/branch-compare targets, an
// immediate block-label value, and inline-asm jump targets) to instead
// name into. This complements ReplaceReferences, which only rewrites
// Ref-carrying operands: block ids are not Refs and are not tracked by
// the use index, so a pass that retargets or drops a block scans for
// them directly. Phi predecessor links are not touched here — those are
// analysis.Structure.RedirectEdges's job, since which phi links move
// depends on which successor the caller is rekeying, not on a global
// from/into substitution.
func (f *Function) RedirectBlockReferences(from, into BlockID) error {
	var walkErr error
	f.Instrs.Each(func(_ Ref, in *Instr) {
		if walkErr != nil || in.Block == BlockNone {
			return
		}
		switch in.Op.Code {
		case OpJump:
			if in.Op.Target == from {
				in.Op.Target = into
			}
		case OpBranch, OpBranchCompare:
			if in.Op.Target == from {
				in.Op.Target = into
			}
			if in.Op.Alt == from {
				in.Op.Alt = into
			}
		case OpImmBlockLabel:
			if in.Op.ImmBlock == from {
				in.Op.ImmBlock = into
			}
		}
	})
	f.InlineAsms.Each(func(_ InlineAsmNodeRef, node *InlineAsmNode) {
		for label, target := range node.JumpTargets {
			if target == from {
				node.JumpTargets[label] = into
			}
		}
	})
	return walkErr
}
