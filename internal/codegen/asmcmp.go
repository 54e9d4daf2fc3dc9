// Package codegen is the AMD64 backend (spec §4.7): it consumes an SSA
// function plus its control-flow structure and liveness, and produces an
// asmcmp container — a linear sequence of virtual-register amd64
// instructions addressed by dense integer indices — which devirtualize
// and emit then turn into assembly text.
package codegen

import "cc/internal/container"

// VReg is a virtual register reference: dense, allocator-assigned,
// resolved to a physical register or a spill slot by Allocate.
type VReg = container.Ref

// RegClass is the kind of value a virtual register holds, which
// constrains which physical registers (or spill-slot shape) it may be
// assigned (spec §4.7 "Register allocation").
type RegClass int

const (
	ClassGeneral RegClass = iota
	ClassFloat
	ClassFloatPair // complex real/imaginary halves
	ClassSpill
	ClassLocalVariable
	ClassImmediate
	ClassMemoryPointer
)

// FloatVariant distinguishes single- from double-precision float
// virtual registers (spec §4.7: "variant single/double").
type FloatVariant int

const (
	VariantNone FloatVariant = iota
	VariantSingle
	VariantDouble
	VariantLongDouble
)

// VRegInfo is one virtual register's allocation-relevant metadata.
type VRegInfo struct {
	Class     RegClass
	Variant   FloatVariant
	Size      int // spill-space size/alignment hint, bytes
	Align     int
	Preferred PhysReg // preallocation hint; PhysNone if unconstrained

	// PreferCalleeSaved is set by instruction selection (from liveness:
	// spec §4.5) when a value survives past a call site still inside its
	// own block — allocating it a callee-saved register avoids a
	// save/reload pair around every call that would otherwise clobber a
	// caller-saved one.
	PreferCalleeSaved bool
}

// AsmOpcode is the virtual amd64 mnemonic an Instruction carries. This is
// a representative subset (spec §4.7 names instruction selection,
// scheduling, and devirtualization as opcode-agnostic machinery) rather
// than every mnemonic a real assembler accepts.
type AsmOpcode int

const (
	AsmNop AsmOpcode = iota
	AsmMovGP
	AsmMovSS
	AsmMovSD
	AsmLea
	AsmAddGP
	AsmSubGP
	AsmImulGP
	AsmAndGP
	AsmOrGP
	AsmXorGP
	AsmShlGP
	AsmShrGP
	AsmNegGP
	AsmNotGP
	AsmCmpGP
	AsmSetCC
	AsmAddSS
	AsmAddSD
	AsmSubSD
	AsmMulSS
	AsmMulSD
	AsmDivSD
	AsmCvtsi2ss
	AsmCvtsi2sd
	AsmCvttss2si
	AsmCvttsd2si
	AsmMovzx
	AsmMovsx
	AsmLoad
	AsmStore
	AsmFld
	AsmFstp
	AsmFxch
	AsmFdecstp
	AsmFadd
	AsmFsub
	AsmFmul
	AsmFdiv
	AsmFchs
	AsmPush
	AsmPop
	AsmCall
	AsmRet
	AsmJmp
	AsmJcc
	AsmLabel
	AsmCmove // cmovCC-based select lowering
)

// OperandKind discriminates how an Operand's fields should be read.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandVReg
	OperandPhysReg
	OperandImmInt
	OperandImmFloat
	OperandMemory   // devirtualized: base PhysReg + Disp
	OperandSpill    // not yet devirtualized: direct spill-area offset
	OperandLabel
	OperandRIPConst // PIC-mode constant reference into .rodata
)

// Operand is a single instruction operand. Width records the operand's
// byte width (1/2/4/8), which instruction selection sets from the SSA
// value's type and devirtualization consults when picking a concrete
// mnemonic variant.
type Operand struct {
	Kind     OperandKind
	VReg     VReg
	Phys     PhysReg
	ImmInt   int64
	ImmFloat float64
	Disp     int32
	Label    string
	Width    int

	// SubOffset addresses one half of a ClassFloatPair value — the extra
	// byte offset Devirtualize folds into Disp once the pair's vreg is
	// resolved to a memory location (spec §4.7's complex real/imaginary
	// halves, which share one pair-sized slot rather than each owning an
	// independent vreg).
	SubOffset int32
}

// Instruction is one asmcmp entry: an opcode plus up to three operands.
// The first operand is conventionally the destination for two/three-
// operand forms (spec §4.7's "operand variants encoding operand width").
type Instruction struct {
	Op        AsmOpcode
	Operands  [3]Operand
	NumOps    int
	SourceRef container.Ref // originating SSA instruction, for debug info
}

// Label names a position in the instruction stream — block entries,
// function begin/end bracket labels (spec §6), and jump targets.
type Label struct {
	Name  string
	Index int // resolved instruction index, -1 until placed
}

// StackFrame is the function's frame layout, computed by devirtualization
// (spec §4.7 "stack-frame size and alignment").
type StackFrame struct {
	LocalsSize       int
	SpillAreaSize    int
	PreservedRegSave int
	MXCSRSave        bool
	X87ControlSave   bool
	VarargSaveArea   int
	Alignment        int
	TotalSize        int // resolved by Devirtualize; what the prologue subtracts from %rsp
}

// DebugEntry maps one instruction index to a source location (spec §4.7
// "Emission"). Parameter home locations are not recorded.
type DebugEntry struct {
	InstrIndex int
	File       string
	Line       int
	Column     int
}

// Asmcmp is the per-function virtual-instruction container (spec §4.7
// intro: "a linear sequence of virtual-register amd64 instructions
// addressed by dense integer indices, with an auxiliary label table, a
// stack-frame descriptor, and a debug-info source-location map").
type Asmcmp struct {
	FuncName string

	Instrs []Instruction
	VRegs  []VRegInfo

	Labels       []Label
	labelByName  map[string]int // index into Labels

	Frame StackFrame
	Debug []DebugEntry

	CompileUnitID string // google/uuid-stamped, set by driver.Session
}

// NewAsmcmp creates an empty container for one function.
func NewAsmcmp(funcName string) *Asmcmp {
	return &Asmcmp{
		FuncName:    funcName,
		labelByName: make(map[string]int),
	}
}

// NewVReg allocates a fresh virtual register with the given class hint.
func (a *Asmcmp) NewVReg(class RegClass, variant FloatVariant, size, align int) VReg {
	ref := VReg(len(a.VRegs))
	a.VRegs = append(a.VRegs, VRegInfo{Class: class, Variant: variant, Size: size, Align: align})
	return ref
}

// Emit appends one instruction and returns its index.
func (a *Asmcmp) Emit(in Instruction) int {
	idx := len(a.Instrs)
	a.Instrs = append(a.Instrs, in)
	return idx
}

// DefineLabel creates (or, if already requested by a forward reference,
// resolves) a named label at the current end of the instruction stream.
func (a *Asmcmp) DefineLabel(name string) int {
	if idx, ok := a.labelByName[name]; ok {
		a.Labels[idx].Index = len(a.Instrs)
		return idx
	}
	idx := len(a.Labels)
	a.Labels = append(a.Labels, Label{Name: name, Index: len(a.Instrs)})
	a.labelByName[name] = idx
	return idx
}

// LabelIndex returns a label's resolved instruction index, reserving the
// label (index -1) if it hasn't been defined yet — instruction selection
// may reference a block's label before that block has been emitted.
func (a *Asmcmp) LabelIndex(name string) int {
	if idx, ok := a.labelByName[name]; ok {
		return idx
	}
	idx := len(a.Labels)
	a.Labels = append(a.Labels, Label{Name: name, Index: -1})
	a.labelByName[name] = idx
	return idx
}
