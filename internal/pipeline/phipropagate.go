package pipeline

import (
	"cc/internal/container"
	"cc/internal/ssa"
)

// PhiPropagate implements spec §4.6.3: a phi whose link-map carries
// exactly one distinct value once self-references (a link pointing back
// at the phi's own output, as loop back-edges produce) are ignored is
// replaced by that value everywhere and dropped, repeating until no phi
// qualifies.
func PhiPropagate(f *ssa.Function) (bool, error) {
	anyChanged := false
	for {
		changed, err := phiPropagateRound(f)
		if err != nil {
			return anyChanged, err
		}
		if !changed {
			return anyChanged, nil
		}
		anyChanged = true
	}
}

func phiPropagateRound(f *ssa.Function) (bool, error) {
	changed := false
	var walkErr error
	f.Phis.Each(func(id ssa.PhiRef, phi *ssa.Phi) {
		if walkErr != nil || changed {
			return
		}
		out, err := f.Get(phi.Output)
		if err != nil || out.Block == ssa.BlockNone {
			return // already dropped
		}

		var only ssa.Ref = container.RefNone
		distinct := 0
		for _, v := range phi.Links {
			if v == phi.Output || v == container.RefNone {
				continue
			}
			if v != only {
				only = v
				distinct++
			}
		}
		if distinct != 1 {
			return
		}

		if err := f.ReplaceReferences(only, phi.Output); err != nil {
			walkErr = err
			return
		}
		if err := f.DropPhi(id); err != nil {
			walkErr = err
			return
		}
		changed = true
	})
	return changed, walkErr
}
