package ssa

import (
	"testing"

	"cc/internal/container"
)

func TestNewInstructionRecordsUseIndex(t *testing.T) {
	f := NewFunction(container.NewAllocator(), "f")
	a, err := f.Imm(f.Entry, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Imm(f.Entry, 2)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := f.BinOp(f.Entry, OpIAdd, a, b)
	if err != nil {
		t.Fatal(err)
	}
	instrs, _, _, _ := f.UsesOf(a)
	if len(instrs) != 1 || instrs[0] != sum {
		t.Fatalf("expected a's use set to contain sum, got %v", instrs)
	}
}

func TestDropInstrRequiresNoUses(t *testing.T) {
	f := NewFunction(container.NewAllocator(), "f")
	a, _ := f.Imm(f.Entry, 1)
	b, _ := f.Imm(f.Entry, 2)
	sum, _ := f.BinOp(f.Entry, OpIAdd, a, b)

	if err := f.DropInstr(a); err == nil {
		t.Fatal("expected drop of a still-used instruction to fail")
	}
	if err := f.DropInstr(sum); err != nil {
		t.Fatalf("dropping the consumer should succeed: %v", err)
	}
	if err := f.DropInstr(a); err != nil {
		t.Fatalf("dropping a now-unused instruction should succeed: %v", err)
	}
	in, _ := f.Get(a)
	if in.Block != BlockNone {
		t.Fatal("expected dropped instruction's block to be the sentinel")
	}
}

func TestDropControlThenDropInstr(t *testing.T) {
	f := NewFunction(container.NewAllocator(), "f")
	other := f.NewBlock()
	jmp, err := f.Jump(f.Entry, other)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.DropInstr(jmp); err == nil {
		t.Fatal("expected drop of control-linked instruction to fail")
	}
	if err := f.DropControl(jmp); err != nil {
		t.Fatal(err)
	}
	if err := f.DropInstr(jmp); err != nil {
		t.Fatalf("drop after unlinking control should succeed: %v", err)
	}
}

func TestReplaceReferencesRewritesOperandsAndPhiLinksAndCalls(t *testing.T) {
	f := NewFunction(container.NewAllocator(), "f")
	a, _ := f.Imm(f.Entry, 1)
	b, _ := f.Imm(f.Entry, 2)
	useA, _ := f.UnOp(f.Entry, OpINeg, a)

	other := f.NewBlock()
	_, phiID, err := f.NewPhi(other, map[BlockID]Ref{f.Entry: a})
	if err != nil {
		t.Fatal(err)
	}
	_, callID, err := f.NewCall(f.Entry, 0, []Ref{a}, container.RefNone, container.RefNone, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.ReplaceReferences(b, a); err != nil {
		t.Fatal(err)
	}

	in, _ := f.Get(useA)
	if in.Op.Ref1 != b {
		t.Fatalf("expected instruction operand rewritten to b, got %v", in.Op.Ref1)
	}
	phi, _ := f.PhiOf(phiID)
	if phi.Links[f.Entry] != b {
		t.Fatalf("expected phi link rewritten to b, got %v", phi.Links[f.Entry])
	}
	call, _ := f.CallOf(callID)
	if call.Args[0] != b {
		t.Fatalf("expected call arg rewritten to b, got %v", call.Args[0])
	}
	instrs, phis, calls, _ := f.UsesOf(a)
	if len(instrs) != 0 || len(phis) != 0 || len(calls) != 0 {
		t.Fatal("expected a's use sets to be empty after full replacement")
	}
}

func TestTraceVisitsReachableInstructionsOnce(t *testing.T) {
	f := NewFunction(container.NewAllocator(), "f")
	dead := f.NewBlock()
	live := f.NewBlock()

	a, _ := f.Imm(f.Entry, 1)
	b, _ := f.Imm(f.Entry, 2)
	sum, _ := f.BinOp(f.Entry, OpIAdd, a, b)
	if _, err := f.Return(f.Entry, sum); err != nil {
		t.Fatal(err)
	}

	// dead and live are never reached by a control edge from entry.
	deadInstr, err := f.Imm(dead, 99)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Imm(live, 100); err != nil {
		t.Fatal(err)
	}

	visited := map[Ref]int{}
	if err := f.Trace(func(ref Ref) { visited[ref]++ }); err != nil {
		t.Fatal(err)
	}
	for ref, count := range visited {
		if count != 1 {
			t.Fatalf("ref %d visited %d times, want exactly once", ref, count)
		}
	}
	if _, ok := visited[sum]; !ok {
		t.Fatal("expected sum to be traced")
	}
	if _, ok := visited[a]; !ok {
		t.Fatal("expected operand a to be traced")
	}
	if _, ok := visited[deadInstr]; ok {
		t.Fatal("expected unreachable block's instruction not to be traced")
	}
}
