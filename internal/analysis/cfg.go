// Package analysis builds the structural (control-flow, dominance) and
// liveness facts the pipeline passes and the code generator query (spec
// §4.4, §4.5). A Structure is a snapshot: it is built once from a
// Function and is invalidated the moment that Function's control flow
// changes — callers rebuild rather than patch it, except for
// RedirectEdges, which a mutating pass calls against the still-valid
// snapshot it built the rewrite decision from.
package analysis

import (
	"cc/internal/ccerrors"
	"cc/internal/container"
	"cc/internal/ssa"
)

type BlockID = ssa.BlockID

// Structure is the per-function control-flow skeleton: successors,
// predecessors, reverse post-order, and immediate dominators, plus a
// lazily built sequencing cache for IsSequencedBefore.
type Structure struct {
	f        *ssa.Function
	reachable map[BlockID]bool
	succ     map[BlockID][]BlockID
	pred     map[BlockID][]BlockID
	rpoIndex map[BlockID]int
	rpoOrder []BlockID
	idom     map[BlockID]BlockID

	seqCache map[BlockID]map[ssa.Ref]int
}

// Build computes successors/predecessors/RPO/dominators for every block
// reachable from f's entry block.
func Build(f *ssa.Function) (*Structure, error) {
	s := &Structure{
		f:        f,
		reachable: map[BlockID]bool{},
		succ:     map[BlockID][]BlockID{},
		pred:     map[BlockID][]BlockID{},
	}
	if err := s.computeSuccessorsAndPredecessors(); err != nil {
		return nil, err
	}
	s.computeReversePostOrder()
	s.computeDominators()
	return s, nil
}

func (s *Structure) successorsOf(id BlockID) ([]BlockID, error) {
	ref, ok, err := s.f.Terminator(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	in, err := s.f.Get(ref)
	if err != nil {
		return nil, err
	}
	switch in.Op.Code {
	case ssa.OpJump:
		return []BlockID{in.Op.Target}, nil
	case ssa.OpBranch, ssa.OpBranchCompare:
		return []BlockID{in.Op.Target, in.Op.Alt}, nil
	case ssa.OpIndirectJump:
		var out []BlockID
		s.f.Blocks.Each(func(bid BlockID, b *ssa.Block) {
			if len(b.PublicLabels) > 0 {
				out = append(out, bid)
			}
		})
		return out, nil
	case ssa.OpInlineAsm:
		node, err := s.f.InlineAsmOf(in.Op.InlineAsm)
		if err != nil {
			return nil, err
		}
		var out []BlockID
		for _, t := range node.JumpTargets {
			out = append(out, t)
		}
		return out, nil
	default: // OpReturn, OpUnreachable
		return nil, nil
	}
}

func (s *Structure) computeSuccessorsAndPredecessors() error {
	queue := container.NewQueue[BlockID](s.f.Alloc)
	queue.Push(s.f.Entry)
	s.reachable[s.f.Entry] = true
	for !queue.Empty() {
		id, ok := queue.PopFirst()
		if !ok {
			break
		}
		succs, err := s.successorsOf(id)
		if err != nil {
			return err
		}
		s.succ[id] = succs
		for _, t := range succs {
			s.pred[t] = append(s.pred[t], id)
			if !s.reachable[t] {
				s.reachable[t] = true
				queue.Push(t)
			}
		}
	}
	return nil
}

func (s *Structure) computeReversePostOrder() {
	visited := map[BlockID]bool{}
	var post []BlockID
	var dfs func(BlockID)
	dfs = func(id BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, succ := range s.succ[id] {
			dfs(succ)
		}
		post = append(post, id)
	}
	dfs(s.f.Entry)
	s.rpoOrder = make([]BlockID, len(post))
	s.rpoIndex = make(map[BlockID]int, len(post))
	for i, id := range post {
		pos := len(post) - 1 - i
		s.rpoOrder[pos] = id
		s.rpoIndex[id] = pos
	}
}

// computeDominators is the standard iterative two-finger intersect
// algorithm over reverse post-order (Cooper, Harvey & Kennedy).
func (s *Structure) computeDominators() {
	s.idom = map[BlockID]BlockID{s.f.Entry: s.f.Entry}
	changed := true
	for changed {
		changed = false
		for _, b := range s.rpoOrder {
			if b == s.f.Entry {
				continue
			}
			var newIdom BlockID = ssa.BlockNone
			for _, p := range s.pred[b] {
				if _, ok := s.idom[p]; !ok {
					continue
				}
				if newIdom == ssa.BlockNone {
					newIdom = p
					continue
				}
				newIdom = s.intersect(newIdom, p)
			}
			if cur, ok := s.idom[b]; !ok || cur != newIdom {
				s.idom[b] = newIdom
				changed = true
			}
		}
	}
}

// intersect walks two predecessors up the (partially built) dominator
// tree until they agree, advancing whichever candidate has the larger
// RPO index (i.e. comes later) — defensively, ties pick the lower
// numbered predecessor, a case RPO numbering never actually produces.
func (s *Structure) intersect(a, b BlockID) BlockID {
	for a != b {
		if s.rpoIndex[a] == s.rpoIndex[b] {
			if b < a {
				return b
			}
			return a
		}
		for s.rpoIndex[a] > s.rpoIndex[b] {
			a = s.idom[a]
		}
		for s.rpoIndex[b] > s.rpoIndex[a] {
			b = s.idom[b]
		}
	}
	return a
}

// ReversePostOrder returns every reachable block in reverse post-order.
func (s *Structure) ReversePostOrder() []BlockID {
	out := make([]BlockID, len(s.rpoOrder))
	copy(out, s.rpoOrder)
	return out
}

// Successors returns b's successor blocks in terminator order.
func (s *Structure) Successors(b BlockID) []BlockID { return s.succ[b] }

// Predecessors returns b's predecessor blocks; order is insertion order
// during the BFS that built the graph, not semantically meaningful.
func (s *Structure) Predecessors(b BlockID) []BlockID { return s.pred[b] }

// IsReachableFromEntry reports whether b was discovered while building
// this snapshot.
func (s *Structure) IsReachableFromEntry(b BlockID) bool { return s.reachable[b] }

// Idom returns b's immediate dominator; for the entry block, it returns
// the entry block itself.
func (s *Structure) Idom(b BlockID) BlockID { return s.idom[b] }

// IsDominator reports whether a dominates b (a==b counts as dominating).
func (s *Structure) IsDominator(a, b BlockID) bool {
	if !s.reachable[b] {
		return false
	}
	for cur := b; ; {
		if cur == a {
			return true
		}
		if cur == s.f.Entry {
			return cur == a
		}
		cur = s.idom[cur]
	}
}

// ClosestCommonDominator returns the closest block dominating both a and
// b. ssa.BlockNone is treated as an identity element: the closest common
// dominator of a block and "no block" is the block itself.
func (s *Structure) ClosestCommonDominator(a, b BlockID) BlockID {
	if a == ssa.BlockNone {
		return b
	}
	if b == ssa.BlockNone {
		return a
	}
	if !s.reachable[a] {
		return b
	}
	if !s.reachable[b] {
		return a
	}
	return s.intersect(a, b)
}

// BlockExclusiveDirectPredecessor reports whether pred's only successor
// is succ and succ's only predecessor is pred.
func (s *Structure) BlockExclusiveDirectPredecessor(pred, succ BlockID) bool {
	ps := s.succ[pred]
	if len(ps) != 1 || ps[0] != succ {
		return false
	}
	sp := s.pred[succ]
	return len(sp) == 1 && sp[0] == pred
}

// IsSequencedBefore reports whether instruction a precedes b in their
// common block's data-list (insertion) order. It is an internal error to
// ask across two different blocks.
func (s *Structure) IsSequencedBefore(a, b ssa.Ref) (bool, error) {
	ia, err := s.f.Get(a)
	if err != nil {
		return false, err
	}
	ib, err := s.f.Get(b)
	if err != nil {
		return false, err
	}
	if ia.Block != ib.Block {
		return false, ccerrors.NewInternal("is-sequenced-before across blocks (%d in %d, %d in %d)", a, ia.Block, b, ib.Block)
	}
	positions, err := s.positionsOf(ia.Block)
	if err != nil {
		return false, err
	}
	return positions[a] < positions[b], nil
}

func (s *Structure) positionsOf(block BlockID) (map[ssa.Ref]int, error) {
	if s.seqCache == nil {
		s.seqCache = map[BlockID]map[ssa.Ref]int{}
	}
	if cached, ok := s.seqCache[block]; ok {
		return cached, nil
	}
	list, err := s.f.DataList(block)
	if err != nil {
		return nil, err
	}
	positions := make(map[ssa.Ref]int, len(list))
	for i, ref := range list {
		positions[ref] = i
	}
	s.seqCache[block] = positions
	return positions, nil
}

// InvalidateSequencing drops the lazily built positional cache; a pass
// that reorders or moves instructions within a block calls this before
// any further IsSequencedBefore query against this same Structure
// snapshot (the snapshot's CFG facts are unaffected by a same-block
// reorder, so only the cache needs dropping).
func (s *Structure) InvalidateSequencing() {
	s.seqCache = nil
}

// RedirectEdges moves every phi link that currently names from as its
// predecessor, in blocks that are from's successors, to instead name to.
// Used by block merging once it has decided to fold from into to.
func (s *Structure) RedirectEdges(from, to BlockID) error {
	for _, succ := range s.succ[from] {
		b, err := s.f.BlockOf(succ)
		if err != nil {
			return err
		}
		for _, phiID := range b.Phis {
			phi, err := s.f.PhiOf(phiID)
			if err != nil {
				return err
			}
			if val, ok := phi.Links[from]; ok {
				delete(phi.Links, from)
				phi.Links[to] = val
			}
		}
	}
	return nil
}
