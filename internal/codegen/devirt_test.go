package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevirtualizeRewritesRegistersAndMemoryOperands(t *testing.T) {
	asm := NewAsmcmp("f")
	local := asm.NewVReg(ClassLocalVariable, VariantNone, 16, 8)
	gen := asm.NewVReg(ClassGeneral, VariantNone, 8, 8)

	asm.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: gen}, {Kind: OperandImmInt, ImmInt: 1}}, NumOps: 2})
	asm.Emit(Instruction{Op: AsmStore, Operands: [3]Operand{{Kind: OperandVReg, VReg: local}, {Kind: OperandVReg, VReg: gen}}, NumOps: 2})

	alloc, err := Allocate(asm)
	require.NoError(t, err)
	require.NoError(t, Devirtualize(asm, alloc, false))

	assert.Equal(t, OperandMemory, asm.Instrs[1].Operands[0].Kind)
	assert.Equal(t, OperandPhysReg, asm.Instrs[0].Operands[0].Kind)
	assert.Greater(t, asm.Frame.TotalSize, 0)
	assert.Equal(t, 0, asm.Frame.TotalSize%asm.Frame.Alignment, "frame size must respect the computed alignment")
}

func TestDevirtualizeTracksCalleeSavedRegisters(t *testing.T) {
	asm := NewAsmcmp("f")
	vregs := make([]VReg, 0, len(GeneralPurposeRegs)+2)
	for i := 0; i < len(GeneralPurposeRegs)+2; i++ {
		v := asm.NewVReg(ClassGeneral, VariantNone, 8, 8)
		vregs = append(vregs, v)
		asm.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: v}, {Kind: OperandImmInt, ImmInt: int64(i)}}, NumOps: 2})
	}
	// keep every vreg alive simultaneously by reading them all at the end
	last := Instruction{Op: AsmAddGP, NumOps: 2}
	last.Operands[0] = Operand{Kind: OperandVReg, VReg: vregs[0]}
	last.Operands[1] = Operand{Kind: OperandVReg, VReg: vregs[len(vregs)-1]}
	asm.Emit(last)
	for _, v := range vregs {
		asm.Emit(Instruction{Op: AsmAddGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: vregs[0]}, {Kind: OperandVReg, VReg: v}}, NumOps: 2})
	}

	alloc, err := Allocate(asm)
	require.NoError(t, err)
	require.NoError(t, Devirtualize(asm, alloc, false))

	assert.Equal(t, len(CalleeSaved)*8, asm.Frame.PreservedRegSave)
}

func TestDevirtualizeSizesVarargSaveAreaForVariadicFunctions(t *testing.T) {
	asm := NewAsmcmp("f")
	gen := asm.NewVReg(ClassGeneral, VariantNone, 8, 8)
	asm.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: gen}, {Kind: OperandImmInt, ImmInt: 1}}, NumOps: 2})

	alloc, err := Allocate(asm)
	require.NoError(t, err)
	require.NoError(t, Devirtualize(asm, alloc, true))

	assert.Equal(t, 6*8+8*16, asm.Frame.VarargSaveArea)

	nonVariadic := NewAsmcmp("g")
	gen2 := nonVariadic.NewVReg(ClassGeneral, VariantNone, 8, 8)
	nonVariadic.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: gen2}, {Kind: OperandImmInt, ImmInt: 1}}, NumOps: 2})
	alloc2, err := Allocate(nonVariadic)
	require.NoError(t, err)
	require.NoError(t, Devirtualize(nonVariadic, alloc2, false))
	assert.Equal(t, 0, nonVariadic.Frame.VarargSaveArea)
}

func TestDevirtualizeSetsX87ControlSaveWhenX87InstructionsPresent(t *testing.T) {
	asm := NewAsmcmp("f")
	spill := asm.NewVReg(ClassSpill, VariantLongDouble, 10, 16)
	asm.Emit(Instruction{Op: AsmFld, Operands: [3]Operand{{Kind: OperandVReg, VReg: spill}}, NumOps: 1})
	asm.Emit(Instruction{Op: AsmFchs})
	asm.Emit(Instruction{Op: AsmFstp, Operands: [3]Operand{{Kind: OperandVReg, VReg: spill}}, NumOps: 1})

	alloc, err := Allocate(asm)
	require.NoError(t, err)
	require.NoError(t, Devirtualize(asm, alloc, false))

	assert.True(t, asm.Frame.X87ControlSave, "an emitted fchs should be recognized as an x87 instruction")
}
