// Package ssa is the optimization IR (spec §3, §4.3): the per-function,
// graph-structured SSA container the pipeline passes (package pipeline)
// mutate and the code generator (package codegen) consumes. Every value
// has exactly one definition; every cross-link (operand, phi predecessor,
// call argument, inline-asm parameter) is a dense integer Ref into an
// Arena, never a pointer (spec §9).
package ssa

import "cc/internal/container"

// Ref is an instruction reference: dense, monotonically increasing within
// a Function, never reused even after the defining instruction is
// dropped (spec §3 invariant 5).
type Ref = container.Ref

// BlockID identifies a block.
type BlockID = container.Ref

// PhiRef, CallRef and InlineAsmNodeRef identify phi/call/inline-asm
// records, a numbering space separate from Ref: a phi's *value* is
// represented by an ordinary instruction (opcode OpPhi, family
// FamilyPhiRef) whose output Ref is what the rest of the container
// operates on, while PhiRef addresses the underlying predecessor map.
type PhiRef = container.Ref
type CallRef = container.Ref
type InlineAsmNodeRef = container.Ref

const BlockNone BlockID = container.RefNone

// Family is the parameter-family discriminant every opcode declares
// exactly one of (spec §4.3). Replace-references and operand extraction
// dispatch on Family alone, from the single table below — adding an
// opcode only ever means adding one row here.
type Family int

const (
	FamilyNone Family = iota
	FamilyImmediate
	FamilyOneRef
	FamilyTwoRef
	FamilyTypedOneRef
	FamilyTypedTwoRef
	FamilyMemoryLoad
	FamilyMemoryStore
	FamilyBitfield
	FamilyStackAlloc
	FamilyBranch
	FamilyBranchCompare
	FamilySelect
	FamilyCallRef
	FamilyInlineAsmRef
	FamilyPhiRef
	FamilyVariableRef
	FamilyOverflowArith
	FamilyAtomic
)

// Opcode enumerates every operation the optimizer knows about. Real
// kefir's opcode table (source/optimizer/code.c) has several hundred
// entries; this one carries the representative subset spec.md's
// invariants and pipeline passes are stated over — integer/float
// arithmetic, comparisons, memory, control flow, calls, phis, and the
// ops GVN/block-merge/phi-select/local-alloc-sink each name explicitly.
type Opcode int

const (
	OpNone Opcode = iota

	// Immediates.
	OpImmInt
	OpImmFloat
	OpImmBlockLabel

	// Integer/bitwise/boolean — global GVN candidates (spec §4.6.2).
	OpIAdd
	OpISub
	OpIMul
	OpIAnd
	OpIOr
	OpIXor
	OpIShl
	OpIShr
	OpINeg
	OpINot
	OpICmp

	// Width conversions — local GVN candidates only.
	OpIntTrunc
	OpIntExt
	OpIntToFloat
	OpFloatToInt

	// Memory.
	OpLoad
	OpStore
	OpBitfieldExtract
	OpBitfieldInsert

	// Stack allocation.
	OpAllocLocal

	// Control flow (terminators unless noted).
	OpJump
	OpBranch
	OpBranchCompare
	OpIndirectJump
	OpReturn
	OpUnreachable

	// Value-producing control-adjacent ops.
	OpSelect
	OpPhi
	OpCall
	OpInlineAsm

	// Globals / thread-locals.
	OpGetGlobal
	OpGetThreadLocal

	// Overflow-checked arithmetic and atomics.
	OpOverflowAdd
	OpOverflowSub
	OpOverflowMul
	OpAtomicLoad
	OpAtomicStore
	OpAtomicRMW

	// Scalar floating-point arithmetic (spec §4.7 mixes these with
	// integer ops across the same SSE/x87 register-class split the
	// complex-number family below builds on).
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg

	// Complex numbers (spec §4.7: "materialise real/imaginary halves as
	// register pairs and mix SSE and x87 as required by the ABI"),
	// grounded on original_source/source/codegen/amd64/code/complex.c.
	OpComplexConstruct
	OpComplexReal
	OpComplexImag
	OpComplexNeg
	OpComplexAdd
	OpComplexSub
	OpComplexMul
	OpComplexDiv
)

// FloatKind distinguishes the three C floating-point widths a float or
// complex-number opcode operates on (spec §4.7's long-double-vs-double
// distinction, carried on Op rather than encoded as separate opcodes per
// width).
type FloatKind int

const (
	FloatSingle FloatKind = iota
	FloatDouble
	FloatLongDouble
)

var opcodeFamily = map[Opcode]Family{
	OpNone:          FamilyNone,
	OpImmInt:        FamilyImmediate,
	OpImmFloat:      FamilyImmediate,
	OpImmBlockLabel: FamilyImmediate,

	OpIAdd: FamilyTwoRef,
	OpISub: FamilyTwoRef,
	OpIMul: FamilyTwoRef,
	OpIAnd: FamilyTwoRef,
	OpIOr:  FamilyTwoRef,
	OpIXor: FamilyTwoRef,
	OpIShl: FamilyTwoRef,
	OpIShr: FamilyTwoRef,
	OpINeg: FamilyOneRef,
	OpINot: FamilyOneRef,
	OpICmp: FamilyTwoRef,

	OpIntTrunc:   FamilyTypedOneRef,
	OpIntExt:     FamilyTypedOneRef,
	OpIntToFloat: FamilyTypedOneRef,
	OpFloatToInt: FamilyTypedOneRef,

	OpLoad:            FamilyMemoryLoad,
	OpStore:            FamilyMemoryStore,
	OpBitfieldExtract: FamilyBitfield,
	OpBitfieldInsert:  FamilyBitfield,

	OpAllocLocal: FamilyStackAlloc,

	OpJump:          FamilyNone, // Target carries the block; no Ref operand
	OpBranch:        FamilyBranch,
	OpBranchCompare: FamilyBranchCompare,
	OpIndirectJump:  FamilyOneRef,
	OpReturn:        FamilyOneRef,
	OpUnreachable:   FamilyNone,

	OpSelect:     FamilySelect,
	OpPhi:        FamilyPhiRef,
	OpCall:       FamilyCallRef,
	OpInlineAsm:  FamilyInlineAsmRef,

	OpGetGlobal:      FamilyVariableRef,
	OpGetThreadLocal: FamilyVariableRef,

	OpOverflowAdd: FamilyOverflowArith,
	OpOverflowSub: FamilyOverflowArith,
	OpOverflowMul: FamilyOverflowArith,
	OpAtomicLoad:  FamilyAtomic,
	OpAtomicStore: FamilyAtomic,
	OpAtomicRMW:   FamilyAtomic,

	OpFAdd: FamilyTwoRef,
	OpFSub: FamilyTwoRef,
	OpFMul: FamilyTwoRef,
	OpFDiv: FamilyTwoRef,
	OpFNeg: FamilyOneRef,

	OpComplexConstruct: FamilyTwoRef,
	OpComplexReal:      FamilyOneRef,
	OpComplexImag:      FamilyOneRef,
	OpComplexNeg:       FamilyOneRef,
	OpComplexAdd:       FamilyTwoRef,
	OpComplexSub:       FamilyTwoRef,
	OpComplexMul:       FamilyTwoRef,
	OpComplexDiv:       FamilyTwoRef,
}

// FamilyOf returns the operation family declared for code.
func FamilyOf(code Opcode) Family { return opcodeFamily[code] }

// IsTerminator reports whether code may be the last control-flow
// instruction of a reachable block (spec §3 invariant 3).
func IsTerminator(code Opcode) bool {
	switch code {
	case OpJump, OpBranch, OpBranchCompare, OpIndirectJump, OpReturn, OpUnreachable, OpInlineAsm:
		return true
	default:
		return false
	}
}

// CondVariant distinguishes a branch/select's comparison sense.
type CondVariant int

const (
	CondNonZero CondVariant = iota
	CondZero
)

// CompareOp is the comparison used by branch-compare.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// VarKind distinguishes global from thread-local variable references.
type VarKind int

const (
	VarGlobal VarKind = iota
	VarThreadLocal
)

// MemOrder is an atomic operation's memory order.
type MemOrder int

const (
	OrderRelaxed MemOrder = iota
	OrderAcquire
	OrderRelease
	OrderAcqRel
	OrderSeqCst
)
