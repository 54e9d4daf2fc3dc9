package analysis

import (
	"cc/internal/ccerrors"
	"cc/internal/container"
	"cc/internal/ssa"
)

// Liveness is the per-function live-range summary (spec §4.5): for every
// block, the set of values defined in the block (Def), the set of values
// used in the block before any local redefinition (UseBeforeDef), and the
// set of values live on entry to the block (LiveIn), computed by
// propagating UseBeforeDef sets backward along the predecessor chain
// until a fixpoint.
type Liveness struct {
	f       *ssa.Function
	def     map[BlockID]*container.HashSet[ssa.Ref]
	useBefore map[BlockID]*container.HashSet[ssa.Ref]
	liveIn  map[BlockID]*container.HashSet[ssa.Ref]
}

// BuildLiveness computes liveness for every block s considers reachable.
// It is a two-stage computation: first each block's direct Def/UseBeforeDef
// buckets are derived from a single linear scan of its data list, honoring
// each value's own def-before-use ordering within the block; then
// LiveIn is propagated breadth-first along predecessor edges until no
// block's LiveIn set grows further.
func BuildLiveness(f *ssa.Function, s *Structure) (*Liveness, error) {
	l := &Liveness{
		f:       f,
		def:     map[BlockID]*container.HashSet[ssa.Ref]{},
		useBefore: map[BlockID]*container.HashSet[ssa.Ref]{},
		liveIn:  map[BlockID]*container.HashSet[ssa.Ref]{},
	}
	for id := range s.reachable {
		if !s.reachable[id] {
			continue
		}
		if err := l.scanBlock(f, id); err != nil {
			return nil, err
		}
	}
	if err := l.propagate(s); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Liveness) scanBlock(f *ssa.Function, id BlockID) error {
	def := container.NewHashSet[ssa.Ref](f.Alloc, container.HashInt32)
	useBefore := container.NewHashSet[ssa.Ref](f.Alloc, container.HashInt32)

	record := func(ref ssa.Ref) {
		if ref == container.RefNone {
			return
		}
		if !def.Has(ref) {
			useBefore.Add(ref)
		}
	}

	list, err := f.DataList(id)
	if err != nil {
		return err
	}
	for _, ref := range list {
		in, err := f.Get(ref)
		if err != nil {
			return err
		}
		for _, p := range in.Op.OperandPtrs() {
			record(*p)
		}
		switch in.Op.Code {
		case ssa.OpPhi:
			// a phi's links are defined by the predecessor, never a
			// use of the current block's own values — they are not
			// scanned here at all (spec §4.5).
		case ssa.OpCall:
			if call, err := f.CallOf(in.Op.Call); err == nil {
				for _, a := range call.Args {
					record(a)
				}
				record(call.ReturnSpace)
			}
		case ssa.OpInlineAsm:
			if node, err := f.InlineAsmOf(in.Op.InlineAsm); err == nil {
				for _, p := range node.Params {
					record(p.ReadRef)
					record(p.LoadStoreRef)
				}
			}
		}
		def.Add(ref)
	}

	if err := sanityCheckOrdering(f, id, list); err != nil {
		return err
	}

	l.def[id] = def
	l.useBefore[id] = useBefore
	return nil
}

// sanityCheckOrdering confirms every operand either was defined earlier
// in this same block's data list or belongs to a different block
// entirely (a cross-block use, which liveness propagation is responsible
// for, not definition order) — catching an SSA well-formedness violation
// (a use sequenced before its block-local definition) before it corrupts
// the liveness fixpoint.
func sanityCheckOrdering(f *ssa.Function, id BlockID, list []ssa.Ref) error {
	position := make(map[ssa.Ref]int, len(list))
	for i, ref := range list {
		position[ref] = i
	}
	for i, ref := range list {
		in, err := f.Get(ref)
		if err != nil {
			return err
		}
		for _, p := range in.Op.OperandPtrs() {
			if *p == container.RefNone {
				continue
			}
			opDef, err := f.Get(*p)
			if err != nil {
				return err
			}
			if opDef.Block != id {
				continue
			}
			if pos, ok := position[*p]; ok && pos >= i {
				return ccerrors.NewInternal(
					"use-def ordering violated in block %d: %d uses %d before its definition", id, ref, *p)
			}
		}
	}
	return nil
}

// propagate runs the breadth-first backward fixpoint: a block's LiveIn is
// its own UseBeforeDef plus every successor's LiveIn value that the
// block itself does not define, repeated until nothing changes.
func (l *Liveness) propagate(s *Structure) error {
	for id := range s.reachable {
		if s.reachable[id] {
			l.liveIn[id] = cloneSet(l.useBefore[id], l.f.Alloc)
		}
	}

	queue := container.NewQueue[BlockID](l.f.Alloc)
	queued := map[BlockID]bool{}
	for id := range s.reachable {
		if s.reachable[id] {
			queue.Push(id)
			queued[id] = true
		}
	}

	for !queue.Empty() {
		id, ok := queue.PopFirst()
		if !ok {
			break
		}
		queued[id] = false

		changed := false
		for _, succ := range s.succ[id] {
			succIn := l.liveIn[succ]
			if succIn == nil {
				continue
			}
			for _, v := range succIn.ToSlice() {
				if l.def[id].Has(v) {
					continue
				}
				if !l.liveIn[id].Has(v) {
					l.liveIn[id].Add(v)
					changed = true
				}
			}
		}
		if changed {
			for _, pred := range s.pred[id] {
				if !queued[pred] {
					queue.Push(pred)
					queued[pred] = true
				}
			}
		}
	}
	return nil
}

func cloneSet(src *container.HashSet[ssa.Ref], alloc *container.Allocator) *container.HashSet[ssa.Ref] {
	dst := container.NewHashSet[ssa.Ref](alloc, container.HashInt32)
	if src != nil {
		for _, v := range src.ToSlice() {
			dst.Add(v)
		}
	}
	return dst
}

// Def returns the values defined directly within block.
func (l *Liveness) Def(block BlockID) []ssa.Ref { return sliceOrNil(l.def[block]) }

// UseBeforeDef returns the values block reads before any local redefinition.
func (l *Liveness) UseBeforeDef(block BlockID) []ssa.Ref { return sliceOrNil(l.useBefore[block]) }

// LiveIn returns the values live on entry to block.
func (l *Liveness) LiveIn(block BlockID) []ssa.Ref { return sliceOrNil(l.liveIn[block]) }

// IsLiveIn reports whether ref is live on entry to block.
func (l *Liveness) IsLiveIn(block BlockID, ref ssa.Ref) bool {
	s, ok := l.liveIn[block]
	return ok && s.Has(ref)
}

func sliceOrNil(s *container.HashSet[ssa.Ref]) []ssa.Ref {
	if s == nil {
		return nil
	}
	return s.ToSlice()
}
