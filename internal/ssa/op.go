package ssa

import "cc/internal/ir"

// Op is the tagged operation every instruction owns: an opcode plus the
// typed parameter union spec §4.3 describes. Only the fields the
// opcode's Family actually uses are meaningful; OperandPtrs and
// replace-references dispatch on Family so adding an opcode never touches
// this struct.
type Op struct {
	Code Opcode

	// FamilyImmediate
	ImmInt   int64
	ImmFloat float64
	ImmBlock BlockID

	// Ref-carrying families (One/Two/TypedOne/TypedTwo/OverflowArith/
	// Atomic/Select/MemoryLoad/MemoryStore/Bitfield/StackAlloc).
	Ref1, Ref2, Ref3 Ref

	// FamilyTypedOneRef / FamilyTypedTwoRef
	Type  ir.TypeID
	Index int

	// FamilyMemoryLoad / FamilyMemoryStore / FamilyAtomic
	Flags uint32
	Order MemOrder

	// FamilyBitfield
	Offset, Width int

	// FamilyBranch / FamilyBranchCompare / FamilySelect
	CondVariant CondVariant
	CompareOp   CompareOp
	Target, Alt BlockID

	// FamilyCallRef
	Call      CallRef
	Indirect  Ref
	HasIndirect bool

	// FamilyInlineAsmRef
	InlineAsm InlineAsmNodeRef

	// FamilyPhiRef
	Phi PhiRef

	// FamilyVariableRef
	VarKind VarKind
	Symbol  string

	// Signedness for overflow-arith.
	Signed bool

	// FloatKind tags the precision an immediate, conversion, scalar
	// float-arithmetic, or complex-number opcode operates on (spec §4.7).
	FloatKind FloatKind
}

// OperandPtrs returns pointers to every plain-value operand Ref this
// operation reads — the set replace-references rewrites and the use
// index's "instructions that use it as an operand" set is built from.
// Block targets, call/phi/inline-asm indirections and symbol names are
// not plain operands: they are walked by their own dedicated logic
// (ReplaceReferences descends into the referenced Call/Phi/InlineAsmNode
// separately; control-flow redirection is block-id based, not Ref-based).
func (op *Op) OperandPtrs() []*Ref {
	switch FamilyOf(op.Code) {
	case FamilyOneRef:
		return []*Ref{&op.Ref1}
	case FamilyTwoRef:
		return []*Ref{&op.Ref1, &op.Ref2}
	case FamilyTypedOneRef:
		return []*Ref{&op.Ref1}
	case FamilyTypedTwoRef:
		return []*Ref{&op.Ref1, &op.Ref2}
	case FamilyMemoryLoad:
		return []*Ref{&op.Ref1}
	case FamilyMemoryStore:
		return []*Ref{&op.Ref1, &op.Ref2}
	case FamilyBitfield:
		return []*Ref{&op.Ref1, &op.Ref2}
	case FamilyStackAlloc:
		return []*Ref{&op.Ref1, &op.Ref2}
	case FamilyBranch:
		return []*Ref{&op.Ref1}
	case FamilyBranchCompare:
		return []*Ref{&op.Ref1, &op.Ref2}
	case FamilySelect:
		return []*Ref{&op.Ref1, &op.Ref2, &op.Ref3}
	case FamilyOverflowArith:
		return []*Ref{&op.Ref1, &op.Ref2, &op.Ref3}
	case FamilyAtomic:
		return []*Ref{&op.Ref1, &op.Ref2, &op.Ref3}
	case FamilyCallRef:
		if op.HasIndirect {
			return []*Ref{&op.Indirect}
		}
		return nil
	default:
		return nil
	}
}

// IsCommutative reports whether operand order is semantically
// irrelevant — GVN's canonical hash (spec §4.6.2) sorts these operands by
// (min, max) before mixing.
func (op *Op) IsCommutative() bool {
	switch op.Code {
	case OpIAdd, OpIMul, OpIAnd, OpIOr, OpIXor, OpFAdd, OpFMul, OpComplexAdd, OpComplexMul:
		return true
	default:
		return false
	}
}
