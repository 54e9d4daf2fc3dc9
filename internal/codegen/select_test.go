package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc/internal/analysis"
	"cc/internal/container"
	"cc/internal/ssa"
)

func selectFunction(t *testing.T, f *ssa.Function) *Asmcmp {
	t.Helper()
	s, err := analysis.Build(f)
	require.NoError(t, err)
	live, err := analysis.BuildLiveness(f, s)
	require.NoError(t, err)
	asm, err := NewSelector(f, s, live, false, false).Select()
	require.NoError(t, err)
	return asm
}

func TestSelectLowersArithmeticAndReturn(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "add")
	a, err := f.Imm(f.Entry, 2)
	require.NoError(t, err)
	b, err := f.Imm(f.Entry, 3)
	require.NoError(t, err)
	sum, err := f.BinOp(f.Entry, ssa.OpIAdd, a, b)
	require.NoError(t, err)
	_, err = f.Return(f.Entry, sum)
	require.NoError(t, err)

	asm := selectFunction(t, f)

	var sawAdd, sawRet bool
	for _, in := range asm.Instrs {
		if in.Op == AsmAddGP {
			sawAdd = true
		}
		if in.Op == AsmRet {
			sawRet = true
		}
	}
	assert.True(t, sawAdd, "expected an AsmAddGP instruction")
	assert.True(t, sawRet, "expected a trailing AsmRet")
}

func TestSelectUnmappedOpcodeFailsClosed(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "weird")
	ref, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.Opcode(9999)})
	require.NoError(t, err)
	_, err = f.Return(f.Entry, ref)
	require.NoError(t, err)

	s, err := analysis.Build(f)
	require.NoError(t, err)
	live, err := analysis.BuildLiveness(f, s)
	require.NoError(t, err)

	_, err = NewSelector(f, s, live, false, false).Select()
	assert.Error(t, err, "an opcode with no dispatch entry must abort selection")
}

func TestSelectBranchEmitsBothTargets(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "branch")
	left := f.NewBlock()
	right := f.NewBlock()

	cond, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	_, err = f.Branch(f.Entry, cond, ssa.CondNonZero, left, right)
	require.NoError(t, err)

	lv, err := f.Imm(left, 1)
	require.NoError(t, err)
	_, err = f.Return(left, lv)
	require.NoError(t, err)

	rv, err := f.Imm(right, 0)
	require.NoError(t, err)
	_, err = f.Return(right, rv)
	require.NoError(t, err)

	asm := selectFunction(t, f)

	var jccCount, jmpCount int
	for _, in := range asm.Instrs {
		switch in.Op {
		case AsmJcc:
			jccCount++
		case AsmJmp:
			jmpCount++
		}
	}
	assert.Equal(t, 1, jccCount)
	assert.GreaterOrEqual(t, jmpCount, 1)
}

func TestSelectPhiResolvesViaPredecessorCopy(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "phi")
	left := f.NewBlock()
	right := f.NewBlock()
	join := f.NewBlock()

	cond, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	_, err = f.Branch(f.Entry, cond, ssa.CondNonZero, left, right)
	require.NoError(t, err)

	lv, err := f.Imm(left, 10)
	require.NoError(t, err)
	_, err = f.Jump(left, join)
	require.NoError(t, err)

	rv, err := f.Imm(right, 20)
	require.NoError(t, err)
	_, err = f.Jump(right, join)
	require.NoError(t, err)

	_, phiRef, err := f.NewPhi(join, map[ssa.BlockID]ssa.Ref{left: lv, right: rv})
	require.NoError(t, err)
	phi, err := f.PhiOf(phiRef)
	require.NoError(t, err)
	_, err = f.Return(join, phi.Output)
	require.NoError(t, err)

	asm := selectFunction(t, f)

	var moves int
	for _, in := range asm.Instrs {
		if in.Op == AsmMovGP || in.Op == AsmMovSD {
			moves++
		}
	}
	assert.Greater(t, moves, 0, "phi resolution should insert at least one copy into the phi's vreg")
}

func TestSelectCallDispatchesArgsToABIRegisters(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "caller")
	a, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	b, err := f.Imm(f.Entry, 2)
	require.NoError(t, err)
	callRef, _, err := f.NewCall(f.Entry, 0, []ssa.Ref{a, b}, container.RefNone, container.RefNone, false)
	require.NoError(t, err)
	_, err = f.Return(f.Entry, callRef)
	require.NoError(t, err)

	asm := selectFunction(t, f)

	var sawArg0, sawCall bool
	for _, in := range asm.Instrs {
		if in.Op == AsmMovGP && in.NumOps == 2 && in.Operands[0].Kind == OperandPhysReg && in.Operands[0].Phys == RDI {
			sawArg0 = true
		}
		if in.Op == AsmCall {
			sawCall = true
		}
	}
	assert.True(t, sawArg0, "first argument should move into RDI per System V")
	assert.True(t, sawCall)

	var sawRAXPreference bool
	for _, in := range asm.Instrs {
		if in.Op == AsmMovGP && in.NumOps == 2 && in.Operands[0].Kind == OperandVReg && in.Operands[1].Kind == OperandPhysReg && in.Operands[1].Phys == RAX {
			if asm.VRegs[in.Operands[0].VReg].Preferred == RAX {
				sawRAXPreference = true
			}
		}
	}
	assert.True(t, sawRAXPreference, "a call's output vreg should prefer RAX, where the value already lands")
}

func TestSelectComplexConstructProducesClassFloatPair(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "makecomplex")
	real, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpImmFloat, ImmFloat: 1, FloatKind: ssa.FloatDouble})
	require.NoError(t, err)
	imag, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpImmFloat, ImmFloat: 2, FloatKind: ssa.FloatDouble})
	require.NoError(t, err)
	c, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpComplexConstruct, Ref1: real, Ref2: imag, FloatKind: ssa.FloatDouble})
	require.NoError(t, err)
	_, err = f.Return(f.Entry, c)
	require.NoError(t, err)

	asm := selectFunction(t, f)

	var sawStore int
	for _, in := range asm.Instrs {
		if in.Op == AsmStore {
			sawStore++
		}
	}
	assert.Equal(t, 2, sawStore, "construct should store both the real and imaginary halves")

	var pairClass bool
	for _, info := range asm.VRegs {
		if info.Class == ClassFloatPair {
			pairClass = true
		}
	}
	assert.True(t, pairClass, "a complex construct should produce a ClassFloatPair vreg")
}

func TestSelectComplexArithmeticRoutesThroughX87ForLongDouble(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "cplxld")
	ar, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpImmFloat, ImmFloat: 1, FloatKind: ssa.FloatLongDouble})
	require.NoError(t, err)
	ai, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpImmFloat, ImmFloat: 2, FloatKind: ssa.FloatLongDouble})
	require.NoError(t, err)
	a, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpComplexConstruct, Ref1: ar, Ref2: ai, FloatKind: ssa.FloatLongDouble})
	require.NoError(t, err)
	br, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpImmFloat, ImmFloat: 3, FloatKind: ssa.FloatLongDouble})
	require.NoError(t, err)
	bi, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpImmFloat, ImmFloat: 4, FloatKind: ssa.FloatLongDouble})
	require.NoError(t, err)
	b, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpComplexConstruct, Ref1: br, Ref2: bi, FloatKind: ssa.FloatLongDouble})
	require.NoError(t, err)
	sum, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpComplexAdd, Ref1: a, Ref2: b, FloatKind: ssa.FloatLongDouble})
	require.NoError(t, err)
	_, err = f.Return(f.Entry, sum)
	require.NoError(t, err)

	asm := selectFunction(t, f)

	var sawFld, sawFadd bool
	for _, in := range asm.Instrs {
		switch in.Op {
		case AsmFld:
			sawFld = true
		case AsmFadd:
			sawFadd = true
		}
	}
	assert.True(t, sawFld, "long-double complex add should load operands through the x87 stack")
	assert.True(t, sawFadd, "long-double complex add should emit fadd")

	var pairClass bool
	for _, info := range asm.VRegs {
		if info.Class == ClassFloatPair {
			pairClass = true
		}
	}
	assert.True(t, pairClass, "a complex value should get a ClassFloatPair vreg")
}

func TestSelectFloatNegRoutesThroughSSEForDouble(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "fneg")
	v, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpImmFloat, ImmFloat: 1, FloatKind: ssa.FloatDouble})
	require.NoError(t, err)
	neg, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpFNeg, Ref1: v, FloatKind: ssa.FloatDouble})
	require.NoError(t, err)
	_, err = f.Return(f.Entry, neg)
	require.NoError(t, err)

	asm := selectFunction(t, f)

	var sawMulSD bool
	for _, in := range asm.Instrs {
		if in.Op == AsmMulSD {
			sawMulSD = true
		}
	}
	assert.True(t, sawMulSD, "double-precision negate should lower to a mulsd by -1")
}

func TestSelectGetGlobalUsesRIPRelativeOperandUnderPIC(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "globalref")
	ref, err := f.NewInstruction(f.Entry, ssa.Op{Code: ssa.OpGetGlobal, Symbol: "counter"})
	require.NoError(t, err)
	_, err = f.Return(f.Entry, ref)
	require.NoError(t, err)

	s, err := analysis.Build(f)
	require.NoError(t, err)
	live, err := analysis.BuildLiveness(f, s)
	require.NoError(t, err)

	asm, err := NewSelector(f, s, live, false, true).Select()
	require.NoError(t, err)

	var sawRIPConst bool
	for _, in := range asm.Instrs {
		if in.Op == AsmLea && in.NumOps == 2 && in.Operands[1].Kind == OperandRIPConst && in.Operands[1].Label == "counter" {
			sawRIPConst = true
		}
	}
	assert.True(t, sawRIPConst, "PIC mode should reference globals via a RIP-relative operand")
}
