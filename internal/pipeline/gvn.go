package pipeline

import (
	"cc/internal/analysis"
	"cc/internal/container"
	"cc/internal/ir"
	"cc/internal/ssa"
)

// gvnClass is an instruction's eligibility for global value numbering
// (spec §4.6.2).
type gvnClass int

const (
	gvnSkip gvnClass = iota
	gvnGlobal
	gvnLocal
)

func classify(code ssa.Opcode) gvnClass {
	switch code {
	case ssa.OpIAdd, ssa.OpISub, ssa.OpIMul, ssa.OpIAnd, ssa.OpIOr, ssa.OpIXor,
		ssa.OpIShl, ssa.OpIShr, ssa.OpINeg, ssa.OpINot, ssa.OpICmp:
		return gvnGlobal
	case ssa.OpIntTrunc, ssa.OpIntExt, ssa.OpIntToFloat, ssa.OpFloatToInt:
		return gvnLocal
	default:
		return gvnSkip
	}
}

// gvnKey is the canonicalised identity GVN hashes and compares
// instructions by: opcode, its (possibly reordered) operand pair, and
// whatever extra discriminant the opcode needs to stay sound (a compare
// op for OpICmp, a target type for the width conversions).
type gvnKey struct {
	Code ssa.Opcode
	A, B ssa.Ref
	Cmp  ssa.CompareOp
	Type ir.TypeID
}

func canonicalKey(op *ssa.Op) gvnKey {
	a, b := op.Ref1, op.Ref2
	if op.IsCommutative() && a > b {
		a, b = b, a
	}
	k := gvnKey{Code: op.Code, A: a, B: b}
	if op.Code == ssa.OpICmp {
		k.Cmp = op.CompareOp
	}
	if ssa.FamilyOf(op.Code) == ssa.FamilyTypedOneRef {
		k.Type = op.Type
	}
	return k
}

// hash mixes the key with the splitmix64 finalizer (spec §4.6.2:
// "a splitmix64-mixed pair of operand references").
func (k gvnKey) hash() uint64 {
	pair := container.SplitMix64(uint64(uint32(k.A))) ^ (container.SplitMix64(uint64(uint32(k.B))+1) * 3)
	return container.SplitMix64(uint64(k.Code))*31 ^ pair ^ uint64(k.Cmp)<<5 ^ uint64(k.Type)<<9
}

// GVN implements spec §4.6.2: it assigns global/local candidates a
// canonical value number and merges duplicates, dominance- or
// sequencing-gated: it first tries keeping the later-discovered
// instruction in place of the bucket's earlier equivalent, then the
// reverse, and when neither is admissible hoists the later instruction
// to its closest common dominator with the equivalent.
func GVN(f *ssa.Function) (bool, error) {
	anyChanged := false
	for {
		s, err := analysis.Build(f)
		if err != nil {
			return anyChanged, err
		}
		did, err := gvnRound(f, s)
		if err != nil {
			return anyChanged, err
		}
		if !did {
			return anyChanged, nil
		}
		anyChanged = true
	}
}

func gvnRound(f *ssa.Function, s *analysis.Structure) (bool, error) {
	var queue []ssa.Ref
	for _, b := range s.ReversePostOrder() {
		list, err := f.DataList(b)
		if err != nil {
			return false, err
		}
		queue = append(queue, list...)
	}

	processed := make(map[ssa.Ref]bool, len(queue))
	buckets := make(map[uint64][]ssa.Ref)
	changed := false

	stall := 0
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		in, err := f.Get(ref)
		if err != nil || in.Block == ssa.BlockNone {
			// dropped mid-round by an earlier substitution in this sweep.
			continue
		}
		class := classify(in.Op.Code)
		if class == gvnSkip {
			processed[ref] = true
			stall = 0
			continue
		}

		ready := true
		for _, p := range operandsForGVN(&in.Op) {
			if p == container.RefNone || processed[p] {
				continue
			}
			if _, err := f.Get(p); err != nil {
				continue // operand from an unreachable/dropped block; doesn't block us
			}
			ready = false
			break
		}
		if !ready {
			queue = append(queue, ref)
			stall++
			if stall > len(queue)+1 {
				// every remaining entry is waiting on something outside this
				// sweep (e.g. a cross-block operand in a sibling branch not
				// yet visited this round) — stop spinning, mark ready anyway.
				processed[ref] = true
				stall = 0
			}
			continue
		}
		stall = 0

		key := canonicalKey(&in.Op)
		h := key.hash()
		did, err := tryNumberInstruction(f, s, ref, key, h, buckets)
		if err != nil {
			return changed, err
		}
		if did {
			changed = true
		}
		processed[ref] = true
		buckets[h] = append(buckets[h], ref)
	}
	return changed, nil
}

func operandsForGVN(op *ssa.Op) []ssa.Ref {
	switch ssa.FamilyOf(op.Code) {
	case ssa.FamilyOneRef, ssa.FamilyTypedOneRef:
		return []ssa.Ref{op.Ref1}
	case ssa.FamilyTwoRef:
		return []ssa.Ref{op.Ref1, op.Ref2}
	default:
		return nil
	}
}

// tryNumberInstruction looks for an equivalent already-numbered
// instruction in ref's bucket and, if found, substitutes one for the
// other per the admissibility/hoist rule.
func tryNumberInstruction(f *ssa.Function, s *analysis.Structure, ref ssa.Ref, key gvnKey, h uint64, buckets map[uint64][]ssa.Ref) (bool, error) {
	in, err := f.Get(ref)
	if err != nil {
		return false, err
	}
	class := classify(in.Op.Code)

	for _, candidate := range buckets[h] {
		cin, err := f.Get(candidate)
		if err != nil || cin.Block == ssa.BlockNone {
			continue
		}
		if canonicalKey(&cin.Op) != key {
			continue
		}

		// spec order: try self (ref) surviving over the bucket's earlier
		// candidate first, then the reverse.
		if admissible(f, s, class, ref, candidate) {
			if err := substitute(f, ref, candidate); err != nil {
				return false, err
			}
			return true, nil
		}
		if admissible(f, s, class, candidate, ref) {
			if err := substitute(f, candidate, ref); err != nil {
				return false, err
			}
			return true, nil
		}

		ccd := s.ClosestCommonDominator(in.Block, cin.Block)
		if ccd == ssa.BlockNone || ccd == in.Block {
			continue
		}
		if !inputsDominatedBy(f, s, &in.Op, ccd) {
			continue
		}
		if err := f.MoveInstruction(ref, ccd); err != nil {
			return false, err
		}
		// self now sits at a block dominating both original sites, so by
		// transitivity it dominates (or precedes) every use candidate did.
		if admissible(f, s, class, ref, candidate) {
			if err := substitute(f, ref, candidate); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// admissible reports whether winner may replace loser everywhere: for a
// global candidate, winner must dominate every one of loser's uses; for
// a local candidate, winner must be sequenced before every same-block use.
func admissible(f *ssa.Function, s *analysis.Structure, class gvnClass, winner, loser ssa.Ref) bool {
	instrs, phis, calls, asms := f.UsesOf(loser)
	win, err := f.Get(winner)
	if err != nil {
		return false
	}

	// A local (same-block, sequencing-only) candidate can never satisfy a
	// phi/call/asm use: a phi use's value is supplied on a predecessor
	// edge (logically a different block), and calls/asm are checked like
	// ordinary instruction uses below — local admissibility degrades to
	// global's dominance rule for those, which a local winner never has
	// grounds to claim, so treat any non-instruction use as disqualifying
	// for local class.
	if class == gvnLocal && (len(phis) > 0 || len(calls) > 0 || len(asms) > 0) {
		return false
	}

	for _, phiID := range phis {
		phi, err := f.PhiOf(phiID)
		if err != nil {
			return false
		}
		for pred, val := range phi.Links {
			if val != loser {
				continue
			}
			if !s.IsDominator(win.Block, pred) {
				return false
			}
		}
	}
	for _, callID := range calls {
		call, err := f.CallOf(callID)
		if err != nil {
			return false
		}
		if !dominatesOrSequencedBefore(f, s, class, winner, call.Output) {
			return false
		}
	}
	for _, asmID := range asms {
		node, err := f.InlineAsmOf(asmID)
		if err != nil {
			return false
		}
		if !dominatesOrSequencedBefore(f, s, class, winner, node.Output) {
			return false
		}
	}

	for _, user := range instrs {
		if !dominatesOrSequencedBefore(f, s, class, winner, user) {
			return false
		}
	}
	return true
}

// dominatesOrSequencedBefore applies the global/local admissibility rule
// to a single ordinary-instruction use site.
func dominatesOrSequencedBefore(f *ssa.Function, s *analysis.Structure, class gvnClass, winner, user ssa.Ref) bool {
	win, err := f.Get(winner)
	if err != nil {
		return false
	}
	uin, err := f.Get(user)
	if err != nil {
		return false
	}
	// Same-block dominance is trivially true at the block level, but a
	// same-block use still demands winner be textually earlier — block
	// dominance alone can't tell a value from being used before it is
	// computed, so the sequencing check applies regardless of class.
	if win.Block == uin.Block {
		before, err := s.IsSequencedBefore(winner, user)
		return err == nil && before
	}
	if class != gvnGlobal {
		return false
	}
	return s.IsDominator(win.Block, uin.Block)
}

// inputsDominatedBy reports whether every real operand op reads is
// defined in a block that dominates ccd (so hoisting the instruction
// there keeps its own inputs valid).
func inputsDominatedBy(f *ssa.Function, s *analysis.Structure, op *ssa.Op, ccd ssa.BlockID) bool {
	for _, p := range operandsForGVN(op) {
		if p == container.RefNone {
			continue
		}
		pin, err := f.Get(p)
		if err != nil {
			return false
		}
		if !s.IsDominator(pin.Block, ccd) {
			return false
		}
	}
	return true
}

func substitute(f *ssa.Function, winner, loser ssa.Ref) error {
	if err := f.ReplaceReferences(winner, loser); err != nil {
		return err
	}
	return f.DropInstr(loser)
}
