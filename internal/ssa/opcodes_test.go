package ssa

import (
	"testing"

	"cc/internal/container"
)

func TestComplexOpcodesReuseOneTwoRefFamilies(t *testing.T) {
	cases := []struct {
		code Opcode
		want Family
	}{
		{OpComplexConstruct, FamilyTwoRef},
		{OpComplexReal, FamilyOneRef},
		{OpComplexImag, FamilyOneRef},
		{OpComplexNeg, FamilyOneRef},
		{OpComplexAdd, FamilyTwoRef},
		{OpComplexSub, FamilyTwoRef},
		{OpComplexMul, FamilyTwoRef},
		{OpComplexDiv, FamilyTwoRef},
		{OpFAdd, FamilyTwoRef},
		{OpFSub, FamilyTwoRef},
		{OpFMul, FamilyTwoRef},
		{OpFDiv, FamilyTwoRef},
		{OpFNeg, FamilyOneRef},
	}
	for _, c := range cases {
		if got := FamilyOf(c.code); got != c.want {
			t.Errorf("FamilyOf(%d) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestComplexConstructOperandsAreReplaceable(t *testing.T) {
	f := NewFunction(container.NewAllocator(), "f")
	real, err := f.Imm(f.Entry, 0)
	if err != nil {
		t.Fatal(err)
	}
	imag, err := f.Imm(f.Entry, 0)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := f.NewInstruction(f.Entry, Op{Code: OpComplexConstruct, Ref1: real, Ref2: imag, FloatKind: FloatDouble})
	if err != nil {
		t.Fatal(err)
	}
	instrs, _, _, _ := f.UsesOf(real)
	if len(instrs) != 1 || instrs[0] != ref {
		t.Fatalf("expected real's use set to contain the construct instruction, got %v", instrs)
	}
}

func TestIsCommutativeCoversFloatAndComplexAdditiveOps(t *testing.T) {
	for _, code := range []Opcode{OpFAdd, OpFMul, OpComplexAdd, OpComplexMul} {
		op := Op{Code: code}
		if !op.IsCommutative() {
			t.Errorf("expected %d to be commutative", code)
		}
	}
	for _, code := range []Opcode{OpFSub, OpFDiv, OpComplexSub, OpComplexDiv} {
		op := Op{Code: code}
		if op.IsCommutative() {
			t.Errorf("expected %d not to be commutative", code)
		}
	}
}
