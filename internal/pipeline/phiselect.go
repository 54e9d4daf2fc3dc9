package pipeline

import (
	"cc/internal/analysis"
	"cc/internal/container"
	"cc/internal/ssa"
)

// PhiToSelect implements spec §4.6.4: a two-link phi whose block's
// immediate dominator ends in branch(cond, Tt, Tf), where each branch
// side either is the phi's own block or a single-jump exclusive-successor
// of the dominator feeding straight into it, becomes a select in the
// phi's block, hoisting each side's local dependency sub-graph in ahead
// of it.
func PhiToSelect(f *ssa.Function) (bool, error) {
	anyChanged := false
	for {
		s, err := analysis.Build(f)
		if err != nil {
			return anyChanged, err
		}
		did, err := phiToSelectRound(f, s)
		if err != nil {
			return anyChanged, err
		}
		if !did {
			return anyChanged, nil
		}
		anyChanged = true
	}
}

func phiToSelectRound(f *ssa.Function, s *analysis.Structure) (bool, error) {
	var did bool
	var walkErr error
	f.Phis.Each(func(id ssa.PhiRef, phi *ssa.Phi) {
		if did || walkErr != nil {
			return
		}
		out, err := f.Get(phi.Output)
		if err != nil || out.Block == ssa.BlockNone {
			return
		}
		if len(phi.Links) != 2 {
			return
		}
		m := phi.Block
		d := s.Idom(m)
		if d == m {
			return
		}
		dterm, ok, err := f.Terminator(d)
		if err != nil || !ok {
			return
		}
		din, err := f.Get(dterm)
		if err != nil || din.Op.Code != ssa.OpBranch {
			return
		}

		trueVal, trueDeps, ok := resolveSelectSide(f, s, din.Op.Target, d, m, phi)
		if !ok {
			return
		}
		falseVal, falseDeps, ok := resolveSelectSide(f, s, din.Op.Alt, d, m, phi)
		if !ok {
			return
		}

		if err := hoistBefore(f, din.Op.Target, m, trueDeps, phi.Output); err != nil {
			walkErr = err
			return
		}
		if err := hoistBefore(f, din.Op.Alt, m, falseDeps, phi.Output); err != nil {
			walkErr = err
			return
		}

		sel, err := f.Select(m, din.Op.CondVariant, din.Op.Ref1, trueVal, falseVal)
		if err != nil {
			walkErr = err
			return
		}
		if err := f.InsertDataBefore(sel, phi.Output); err != nil {
			walkErr = err
			return
		}
		if err := f.ReplaceReferences(sel, phi.Output); err != nil {
			walkErr = err
			return
		}
		if err := f.DropPhi(id); err != nil {
			walkErr = err
			return
		}
		did = true
	})
	return did, walkErr
}

// resolveSelectSide classifies one branch side and returns the phi's
// corresponding link value plus the side's local dependency sub-graph
// (empty when side is the phi's own block, since nothing needs hoisting).
func resolveSelectSide(f *ssa.Function, s *analysis.Structure, side, d, m ssa.BlockID, phi *ssa.Phi) (ssa.Ref, []ssa.Ref, bool) {
	if side == m {
		v, ok := phi.Links[d]
		if !ok {
			return container.RefNone, nil, false
		}
		return v, nil, true
	}

	if preds := s.Predecessors(side); len(preds) != 1 || preds[0] != d {
		return container.RefNone, nil, false
	}
	controls, err := f.ControlList(side)
	if err != nil || len(controls) != 1 {
		return container.RefNone, nil, false
	}
	term, err := f.Get(controls[0])
	if err != nil || term.Op.Code != ssa.OpJump || term.Op.Target != m {
		return container.RefNone, nil, false
	}

	v, ok := phi.Links[side]
	if !ok {
		return container.RefNone, nil, false
	}
	deps, ok := collectLocalDeps(f, side, v)
	if !ok {
		return container.RefNone, nil, false
	}
	return v, deps, true
}

// collectLocalDeps walks v's operand graph, collecting every transitive
// dependency that is itself defined in side, in side's own data-list
// order. Anything defined outside side already dominates the phi's block
// (side's only predecessor does, transitively) and needs no hoisting. A
// phi, call, or inline-asm dependency aborts the hoist — their use-index
// bookkeeping isn't a plain operand rewrite.
func collectLocalDeps(f *ssa.Function, side, v ssa.Ref) ([]ssa.Ref, bool) {
	visited := map[ssa.Ref]bool{}
	ok := true
	var walk func(r ssa.Ref)
	walk = func(r ssa.Ref) {
		if !ok || r == container.RefNone || visited[r] {
			return
		}
		in, err := f.Get(r)
		if err != nil {
			ok = false
			return
		}
		if in.Block != side {
			return
		}
		switch in.Op.Code {
		case ssa.OpPhi, ssa.OpCall, ssa.OpInlineAsm:
			ok = false
			return
		}
		if ssa.IsTerminator(in.Op.Code) {
			ok = false
			return
		}
		visited[r] = true
		for _, p := range operandRefs(&in.Op) {
			walk(p)
		}
	}
	walk(v)
	if !ok {
		return nil, false
	}

	list, err := f.DataList(side)
	if err != nil {
		return nil, false
	}
	ordered := make([]ssa.Ref, 0, len(visited))
	for _, r := range list {
		if visited[r] {
			ordered = append(ordered, r)
		}
	}
	return ordered, true
}

func operandRefs(op *ssa.Op) []ssa.Ref {
	ptrs := op.OperandPtrs()
	out := make([]ssa.Ref, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// hoistBefore moves side's collected dependency sub-graph into m,
// positioned immediately before existing (the phi's own output), in
// dependency order. A no-op when side is the phi's own block.
func hoistBefore(f *ssa.Function, side, m ssa.BlockID, deps []ssa.Ref, existing ssa.Ref) error {
	if side == m {
		return nil
	}
	for _, dep := range deps {
		if err := f.MoveInstruction(dep, m); err != nil {
			return err
		}
		if err := f.InsertDataBefore(dep, existing); err != nil {
			return err
		}
	}
	return nil
}
