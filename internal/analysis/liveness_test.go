package analysis

import (
	"testing"

	"cc/internal/container"
	"cc/internal/ssa"
)

func TestLivenessCrossesBlockBoundary(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	tail := f.NewBlock()

	x, err := f.Imm(f.Entry, 41)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Jump(f.Entry, tail); err != nil {
		t.Fatal(err)
	}
	one, _ := f.Imm(tail, 1)
	sum, err := f.BinOp(tail, ssa.OpIAdd, x, one)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Return(tail, sum); err != nil {
		t.Fatal(err)
	}

	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	l, err := BuildLiveness(f, s)
	if err != nil {
		t.Fatal(err)
	}

	if !l.IsLiveIn(tail, x) {
		t.Fatal("x, defined in entry and used in tail, should be live-in to tail")
	}
	if l.IsLiveIn(f.Entry, x) {
		t.Fatal("x is defined in entry, not live on entry to entry")
	}
	defs := l.Def(f.Entry)
	found := false
	for _, d := range defs {
		if d == x {
			found = true
		}
	}
	if !found {
		t.Fatal("x should be in entry's direct Def set")
	}
}

func TestLivenessMergesAcrossDiamondBranches(t *testing.T) {
	f, left, right, join := diamond(t)
	// Define a fresh entry value that both arms consume; join does not use
	// it, so it must be live-in to both arms but not to join.
	x, err := f.Imm(f.Entry, 9)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.UnOp(left, ssa.OpINeg, x); err != nil {
		t.Fatal(err)
	}
	if _, err := f.UnOp(right, ssa.OpINeg, x); err != nil {
		t.Fatal(err)
	}

	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	l, err := BuildLiveness(f, s)
	if err != nil {
		t.Fatal(err)
	}

	if !l.IsLiveIn(left, x) {
		t.Fatal("x should be live-in to left")
	}
	if !l.IsLiveIn(right, x) {
		t.Fatal("x should be live-in to right")
	}
	if l.IsLiveIn(join, x) {
		t.Fatal("x is not used in join or beyond, should not be live-in there")
	}
}

func TestLivenessUseBeforeDefExcludesLocallyRedefinedValues(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	a, _ := f.Imm(f.Entry, 1)
	b, err := f.UnOp(f.Entry, ssa.OpINeg, a)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Return(f.Entry, b); err != nil {
		t.Fatal(err)
	}

	s, err := Build(f)
	if err != nil {
		t.Fatal(err)
	}
	l, err := BuildLiveness(f, s)
	if err != nil {
		t.Fatal(err)
	}

	for _, u := range l.UseBeforeDef(f.Entry) {
		if u == b {
			t.Fatal("b is defined and used entirely within entry, should not count as use-before-def")
		}
	}
}
