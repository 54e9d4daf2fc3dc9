package analysis

import (
	"testing"

	"cc/internal/container"
	"cc/internal/ssa"
)

// diamond builds:
//
//	entry -> (left | right) -> join
//
// a textbook diamond, the minimal graph with a non-trivial dominator
// (join is dominated by entry, not by left or right).
func diamond(t *testing.T) (*ssa.Function, ssa.BlockID, ssa.BlockID, ssa.BlockID) {
	t.Helper()
	f := ssa.NewFunction(container.NewAllocator(), "diamond")
	left := f.NewBlock()
	right := f.NewBlock()
	join := f.NewBlock()

	cond, err := f.Imm(f.Entry, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Branch(f.Entry, cond, ssa.CondNonZero, left, right); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Jump(left, join); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Jump(right, join); err != nil {
		t.Fatal(err)
	}
	v, err := f.Imm(join, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Return(join, v); err != nil {
		t.Fatal(err)
	}
	return f, left, right, join
}

func TestSuccessorsAndPredecessorsAreMutuallyConsistent(t *testing.T) {
	f, left, right, join := diamond(t)
	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range []ssa.BlockID{f.Entry, left, right, join} {
		for _, succ := range s.Successors(b) {
			found := false
			for _, p := range s.Predecessors(succ) {
				if p == b {
					found = true
				}
			}
			if !found {
				t.Fatalf("block %d lists %d as successor but not vice versa", b, succ)
			}
		}
	}
}

func TestDominatorTreeReachesEveryReachableBlock(t *testing.T) {
	f, left, right, join := diamond(t)
	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range []ssa.BlockID{f.Entry, left, right, join} {
		if !s.IsReachableFromEntry(b) {
			t.Fatalf("block %d should be reachable", b)
		}
		if !s.IsDominator(f.Entry, b) {
			t.Fatalf("entry should dominate every reachable block, failed for %d", b)
		}
	}
	if s.IsDominator(left, join) {
		t.Fatal("left does not dominate join: right is an alternate path")
	}
	if s.Idom(join) != f.Entry {
		t.Fatalf("join's immediate dominator should be entry, got %d", s.Idom(join))
	}
	if got := s.ClosestCommonDominator(left, right); got != f.Entry {
		t.Fatalf("closest common dominator of left/right should be entry, got %d", got)
	}
}

func TestIsDominatorImpliesImmediateDominatorChain(t *testing.T) {
	f, _, _, join := diamond(t)
	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	// invariant: is-dominator(a,b) => a==b OR a dominates idom(b).
	for b := range s.reachable {
		for a := range s.reachable {
			if !s.IsDominator(a, b) {
				continue
			}
			if a == b {
				continue
			}
			if !s.IsDominator(a, s.Idom(b)) {
				t.Fatalf("is-dominator(%d,%d) held but %d does not dominate idom(%d)=%d", a, b, a, b, s.Idom(b))
			}
		}
	}
	_ = join
}

func TestBlockExclusiveDirectPredecessor(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "chain")
	mid := f.NewBlock()
	tail := f.NewBlock()
	if _, err := f.Jump(f.Entry, mid); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Jump(mid, tail); err != nil {
		t.Fatal(err)
	}
	v, _ := f.Imm(tail, 0)
	if _, err := f.Return(tail, v); err != nil {
		t.Fatal(err)
	}
	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	if !s.BlockExclusiveDirectPredecessor(f.Entry, mid) {
		t.Fatal("entry should be mid's exclusive direct predecessor")
	}
	if !s.BlockExclusiveDirectPredecessor(mid, tail) {
		t.Fatal("mid should be tail's exclusive direct predecessor")
	}

	// Now a diamond: join has two predecessors (left and right), which
	// breaks exclusivity.
	f2, left, right, join := diamond(t)
	s2, err := Build(f2)
	if err != nil {
		t.Fatal(err)
	}
	if s2.BlockExclusiveDirectPredecessor(left, join) {
		t.Fatal("left should not be join's exclusive predecessor: right also reaches it")
	}
	_ = right
}

func TestIsSequencedBeforeOrdersWithinABlock(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	a, _ := f.Imm(f.Entry, 1)
	b, _ := f.Imm(f.Entry, 2)
	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	before, err := s.IsSequencedBefore(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !before {
		t.Fatal("a should be sequenced before b")
	}
	after, err := s.IsSequencedBefore(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if after {
		t.Fatal("b should not be sequenced before a")
	}
}

func TestIsSequencedBeforeRejectsCrossBlockQuery(t *testing.T) {
	f, left, _, _ := diamond(t)
	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	cond, _ := f.Get(mustTerminator(t, f, f.Entry))
	_ = cond
	leftList, err := f.ControlList(left)
	if err != nil {
		t.Fatal(err)
	}
	entryList, err := f.DataList(f.Entry)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.IsSequencedBefore(entryList[0], leftList[0]); err == nil {
		t.Fatal("expected cross-block sequencing query to fail")
	}
}

func mustTerminator(t *testing.T, f *ssa.Function, b ssa.BlockID) ssa.Ref {
	t.Helper()
	ref, ok, err := f.Terminator(b)
	if err != nil || !ok {
		t.Fatalf("expected terminator for block %d: ok=%v err=%v", b, ok, err)
	}
	return ref
}

func TestRedirectEdgesRewritesPhiLinks(t *testing.T) {
	f, left, right, join := diamond(t)
	val, _ := f.Imm(left, 7)
	_, phiID, err := f.NewPhi(join, map[ssa.BlockID]ssa.Ref{left: val})
	if err != nil {
		t.Fatal(err)
	}
	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	replacement := f.NewBlock()
	if _, err := f.Jump(replacement, join); err != nil {
		t.Fatal(err)
	}
	if err := s.RedirectEdges(left, replacement); err != nil {
		t.Fatal(err)
	}
	phi, err := f.PhiOf(phiID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := phi.Links[left]; ok {
		t.Fatal("expected left's phi link to be removed")
	}
	if phi.Links[replacement] != val {
		t.Fatalf("expected replacement's phi link to carry val, got %v", phi.Links[replacement])
	}
	_ = right
}
