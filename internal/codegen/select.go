package codegen

import (
	"fmt"

	"cc/internal/analysis"
	"cc/internal/ccerrors"
	"cc/internal/container"
	"cc/internal/ssa"
)

// emitter lowers one SSA instruction into asmcmp instructions against
// sel's in-progress container, recording the value's vreg if it produces
// one.
type emitter func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error

// dispatch is the single opcode → emitter table spec §4.7 calls for
// ("instruction selection... a single dispatch table (opcode → emitter)
// covers every SSA opcode"). Opcodes with no entry here are either
// terminators (handled by Selector.emitTerminator, since they need
// successor-label context the table doesn't carry) or OpPhi/OpAllocLocal
// (resolved structurally rather than by a per-instruction emitter — see
// Selector.Select). OpImmBlockLabel has no entry either; selecting one
// fails with an internal-state error.
var dispatch = map[ssa.Opcode]emitter{
	ssa.OpImmInt:   emitImm,
	ssa.OpImmFloat: emitImm,

	ssa.OpIAdd: emitBinArith(AsmAddGP),
	ssa.OpISub: emitBinArith(AsmSubGP),
	ssa.OpIMul: emitBinArith(AsmImulGP),
	ssa.OpIAnd: emitBinArith(AsmAndGP),
	ssa.OpIOr:  emitBinArith(AsmOrGP),
	ssa.OpIXor: emitBinArith(AsmXorGP),
	ssa.OpIShl: emitBinArith(AsmShlGP),
	ssa.OpIShr: emitBinArith(AsmShrGP),
	ssa.OpINeg: emitUnArith(AsmNegGP),
	ssa.OpINot: emitUnArith(AsmNotGP),
	ssa.OpICmp: emitCompare,

	ssa.OpIntTrunc:   emitConvert(AsmMovGP),
	ssa.OpIntExt:     emitConvert(AsmMovsx),
	ssa.OpIntToFloat: emitConvert(AsmCvtsi2sd),
	ssa.OpFloatToInt: emitConvert(AsmCvttsd2si),

	ssa.OpLoad:  emitLoad,
	ssa.OpStore: emitStore,

	ssa.OpSelect: emitSelect,
	ssa.OpCall:   emitCall,

	ssa.OpGetGlobal:      emitGetVariable,
	ssa.OpGetThreadLocal: emitGetVariable,

	ssa.OpOverflowAdd: emitOverflowArith(AsmAddGP),
	ssa.OpOverflowSub: emitOverflowArith(AsmSubGP),
	ssa.OpOverflowMul: emitOverflowArith(AsmImulGP),

	ssa.OpAtomicLoad:  emitAtomicLoad,
	ssa.OpAtomicStore: emitAtomicStore,
	ssa.OpAtomicRMW:   emitAtomicRMW,

	ssa.OpBitfieldExtract: emitBitfieldExtract,
	ssa.OpBitfieldInsert:  emitBitfieldInsert,

	ssa.OpFAdd: emitFloatArith(AsmAddSD, AsmFadd),
	ssa.OpFSub: emitFloatArith(AsmSubSD, AsmFsub),
	ssa.OpFMul: emitFloatArith(AsmMulSD, AsmFmul),
	ssa.OpFDiv: emitFloatArith(AsmDivSD, AsmFdiv),
	ssa.OpFNeg: emitFloatNeg,

	ssa.OpComplexConstruct: emitComplexConstruct,
	ssa.OpComplexReal:      emitComplexExtract(true),
	ssa.OpComplexImag:      emitComplexExtract(false),
	ssa.OpComplexNeg:       emitComplexNeg,
	ssa.OpComplexAdd:       emitComplexAddSub(AsmAddSD, AsmFadd),
	ssa.OpComplexSub:       emitComplexAddSub(AsmSubSD, AsmFsub),
	ssa.OpComplexMul:       emitComplexMul,
	ssa.OpComplexDiv:       emitComplexDiv,
}

// Selector walks one SSA function's reachable blocks in reverse-post-order
// and lowers every instruction into an Asmcmp container (spec §4.7).
type Selector struct {
	f    *ssa.Function
	s    *analysis.Structure
	live *analysis.Liveness
	asm  *Asmcmp
	vreg map[ssa.Ref]VReg
	x87  *x87Stack
	pic  bool
}

// NewSelector prepares a selector for one function. valgrindX87 toggles
// the x87 stack model's Valgrind-compatible lowering (spec §6); pic
// toggles position-independent constant references (spec §6).
func NewSelector(f *ssa.Function, s *analysis.Structure, live *analysis.Liveness, valgrindX87, pic bool) *Selector {
	return &Selector{
		f:    f,
		s:    s,
		live: live,
		vreg: make(map[ssa.Ref]VReg),
		x87:  newX87Stack(valgrindX87),
		pic:  pic,
	}
}

// Select lowers the whole function, returning its Asmcmp container.
func (sel *Selector) Select() (*Asmcmp, error) {
	sel.asm = NewAsmcmp(sel.f.Name)

	for _, block := range sel.s.ReversePostOrder() {
		sel.asm.DefineLabel(blockLabel(sel.f.Name, block))

		list, err := sel.f.DataList(block)
		if err != nil {
			return nil, err
		}
		scheduled, err := scheduleBlock(sel.f, list, defaultScheduleCallback)
		if err != nil {
			return nil, err
		}

		for _, ref := range scheduled {
			in, err := sel.f.Get(ref)
			if err != nil {
				return nil, err
			}
			switch in.Op.Code {
			case ssa.OpPhi:
				sel.vregFor(ref, in) // reserve the vreg; copies land at predecessor ends
				continue
			case ssa.OpAllocLocal:
				sel.vregFor(ref, in)
				continue
			}
			em, ok := dispatch[in.Op.Code]
			if !ok {
				return nil, ccerrors.NewInternal("no instruction-selection emitter for opcode %d", in.Op.Code)
			}
			if err := em(sel, ref, in); err != nil {
				return nil, err
			}
		}

		if err := sel.resolvePhiCopies(block); err != nil {
			return nil, err
		}
		if err := sel.emitTerminator(block); err != nil {
			return nil, err
		}
	}
	return sel.asm, nil
}

// resolvePhiCopies emits, at the end of block (before its terminator),
// one move per phi in each successor that receives a link from block —
// the standard out-of-SSA copy insertion this container's simple model
// performs instead of representing parallel copies explicitly. A
// successor reached by more than one of this block's own outgoing edges
// (impossible for OpJump/OpBranch, which name distinct targets) or a
// copy sequence that would require a swap (two phis reading each other's
// predecessor value) is out of scope for this subset; the pipeline's
// block-merge and phi-to-select passes are expected to have already
// removed the phis most likely to hit that case before codegen runs.
func (sel *Selector) resolvePhiCopies(block ssa.BlockID) error {
	for _, succ := range sel.s.Successors(block) {
		b, err := sel.f.BlockOf(succ)
		if err != nil {
			return err
		}
		for _, phiID := range b.Phis {
			phi, err := sel.f.PhiOf(phiID)
			if err != nil {
				return err
			}
			val, ok := phi.Links[block]
			if !ok || val == container.RefNone {
				continue
			}
			srcIn, err := sel.f.Get(val)
			if err != nil {
				return err
			}
			dstIn, err := sel.f.Get(phi.Output)
			if err != nil {
				return err
			}
			src := sel.vregFor(val, srcIn)
			dst := sel.vregFor(phi.Output, dstIn)
			sel.emitMove(dst, src, regWidth(sel.asm, dst))
		}
	}
	return nil
}

func (sel *Selector) emitTerminator(block ssa.BlockID) error {
	ref, ok, err := sel.f.Terminator(block)
	if err != nil {
		return err
	}
	if !ok {
		return nil // unreachable block; nothing to emit
	}
	in, err := sel.f.Get(ref)
	if err != nil {
		return err
	}
	switch in.Op.Code {
	case ssa.OpJump:
		sel.x87.flush(sel.asm)
		sel.asm.Emit(Instruction{Op: AsmJmp, Operands: [3]Operand{{Kind: OperandLabel, Label: blockLabel(sel.f.Name, in.Op.Target)}}, NumOps: 1, SourceRef: ref})
	case ssa.OpBranch:
		cond := sel.vregOf(in.Op.Ref1)
		sel.asm.Emit(Instruction{Op: AsmCmpGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: cond}, {Kind: OperandImmInt, ImmInt: 0}}, NumOps: 2, SourceRef: ref})
		sel.x87.flush(sel.asm)
		sel.asm.Emit(Instruction{Op: AsmJcc, Operands: [3]Operand{{Kind: OperandImmInt, ImmInt: int64(in.Op.CondVariant)}, {Kind: OperandLabel, Label: blockLabel(sel.f.Name, in.Op.Target)}}, NumOps: 2, SourceRef: ref})
		sel.asm.Emit(Instruction{Op: AsmJmp, Operands: [3]Operand{{Kind: OperandLabel, Label: blockLabel(sel.f.Name, in.Op.Alt)}}, NumOps: 1, SourceRef: ref})
	case ssa.OpBranchCompare:
		a, b := sel.vregOf(in.Op.Ref1), sel.vregOf(in.Op.Ref2)
		sel.asm.Emit(Instruction{Op: AsmCmpGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: a}, {Kind: OperandVReg, VReg: b}}, NumOps: 2, SourceRef: ref})
		sel.x87.flush(sel.asm)
		sel.asm.Emit(Instruction{Op: AsmJcc, Operands: [3]Operand{{Kind: OperandImmInt, ImmInt: int64(in.Op.CompareOp)}, {Kind: OperandLabel, Label: blockLabel(sel.f.Name, in.Op.Target)}}, NumOps: 2, SourceRef: ref})
		sel.asm.Emit(Instruction{Op: AsmJmp, Operands: [3]Operand{{Kind: OperandLabel, Label: blockLabel(sel.f.Name, in.Op.Alt)}}, NumOps: 1, SourceRef: ref})
	case ssa.OpIndirectJump:
		target := sel.vregOf(in.Op.Ref1)
		sel.x87.flush(sel.asm)
		sel.asm.Emit(Instruction{Op: AsmJmp, Operands: [3]Operand{{Kind: OperandVReg, VReg: target}}, NumOps: 1, SourceRef: ref})
	case ssa.OpReturn:
		if in.Op.Ref1 != container.RefNone {
			v := sel.vregOf(in.Op.Ref1)
			dst := RAX
			if sel.classOf(v) == ClassFloat {
				dst = XMM0
			}
			sel.asm.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{{Kind: OperandPhysReg, Phys: dst}, {Kind: OperandVReg, VReg: v}}, NumOps: 2, SourceRef: ref})
		}
		sel.x87.flush(sel.asm)
		sel.asm.Emit(Instruction{Op: AsmRet, SourceRef: ref})
	case ssa.OpUnreachable:
		// nothing to emit; an unreachable terminator marks dead control
		// flow the front end guarantees is never executed.
	case ssa.OpInlineAsm:
		return sel.emitInlineAsmTerminator(ref, in)
	default:
		return ccerrors.NewInternal("block %d ends in non-terminator opcode %d", block, in.Op.Code)
	}
	return nil
}

func (sel *Selector) emitInlineAsmTerminator(ref ssa.Ref, in *ssa.Instr) error {
	node, err := sel.f.InlineAsmOf(in.Op.InlineAsm)
	if err != nil {
		return err
	}
	sel.x87.flush(sel.asm)
	for _, p := range node.Params {
		if p.ReadRef == container.RefNone {
			continue
		}
		_ = sel.vregOf(p.ReadRef)
	}
	for name, target := range node.JumpTargets {
		sel.asm.Emit(Instruction{Op: AsmLabel, Operands: [3]Operand{{Kind: OperandLabel, Label: name}}, NumOps: 1, SourceRef: ref})
		sel.asm.Emit(Instruction{Op: AsmJmp, Operands: [3]Operand{{Kind: OperandLabel, Label: blockLabel(sel.f.Name, target)}}, NumOps: 1, SourceRef: ref})
	}
	return nil
}

// vregFor reserves (or returns the already-reserved) vreg for ref,
// classifying it from in's opcode the first time it's seen.
func (sel *Selector) vregFor(ref ssa.Ref, in *ssa.Instr) VReg {
	if v, ok := sel.vreg[ref]; ok {
		return v
	}
	class, variant, size, align := classify(in)
	v := sel.asm.NewVReg(class, variant, size, align)
	sel.vreg[ref] = v
	return v
}

// vregOf returns ref's vreg, fetching its defining Instr to classify it
// if this is the first reference. Panics are not used anywhere in this
// codebase (spec §7); a missing definition is an internal-state bug a
// caller already validated against by construction (every operand ref
// selection visits was produced by a live SSA instruction), so this
// helper's error path collapses to a zero-value vreg a caller would
// immediately notice misbehaving rather than threading another error
// return through every arithmetic emitter.
func (sel *Selector) vregOf(ref ssa.Ref) VReg {
	if v, ok := sel.vreg[ref]; ok {
		return v
	}
	in, err := sel.f.Get(ref)
	if err != nil {
		return container.RefNone
	}
	return sel.vregFor(ref, in)
}

// markLiveAcrossCall flags, via analysis.Liveness, every already-selected
// vreg whose SSA value is still live past block's end (live-in to some
// successor) as a candidate for a callee-saved physical register — spec
// §4.5's liveness feeding spec §4.7's register allocation, so a value
// that survives the call in block doesn't need a caller-saved register
// saved and reloaded around it.
func (sel *Selector) markLiveAcrossCall(block ssa.BlockID) {
	succs := sel.s.Successors(block)
	if len(succs) == 0 {
		return
	}
	for ref, v := range sel.vreg {
		for _, succ := range succs {
			if sel.live.IsLiveIn(succ, ref) {
				if int(v) < len(sel.asm.VRegs) {
					sel.asm.VRegs[v].PreferCalleeSaved = true
				}
				break
			}
		}
	}
}

func (sel *Selector) classOf(v VReg) RegClass {
	if int(v) < 0 || int(v) >= len(sel.asm.VRegs) {
		return ClassGeneral
	}
	return sel.asm.VRegs[v].Class
}

func (sel *Selector) emitMove(dst, src VReg, width int) {
	op := AsmMovGP
	if sel.classOf(dst) == ClassFloat || sel.classOf(src) == ClassFloat {
		op = AsmMovSD
	}
	sel.asm.Emit(Instruction{Op: op, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, Width: width}, {Kind: OperandVReg, VReg: src, Width: width}}, NumOps: 2})
}

func regWidth(a *Asmcmp, v VReg) int {
	if int(v) < 0 || int(v) >= len(a.VRegs) {
		return 8
	}
	if a.VRegs[v].Size > 0 && a.VRegs[v].Size <= 8 {
		return a.VRegs[v].Size
	}
	return 8
}

// classify derives a new value's register class/variant/spill shape from
// its defining opcode (spec §4.7: "Emitters allocate virtual registers
// with class hints").
func classify(in *ssa.Instr) (RegClass, FloatVariant, int, int) {
	switch in.Op.Code {
	case ssa.OpImmFloat, ssa.OpIntToFloat,
		ssa.OpFAdd, ssa.OpFSub, ssa.OpFMul, ssa.OpFDiv, ssa.OpFNeg,
		ssa.OpComplexReal, ssa.OpComplexImag:
		return floatClassFor(in.Op.FloatKind)
	case ssa.OpComplexConstruct, ssa.OpComplexAdd, ssa.OpComplexSub,
		ssa.OpComplexMul, ssa.OpComplexDiv, ssa.OpComplexNeg:
		width := componentWidth(in.Op.FloatKind)
		return ClassFloatPair, complexVariant(in.Op.FloatKind), 2 * width, 16
	case ssa.OpAllocLocal:
		return ClassLocalVariable, VariantNone, 0, 0
	default:
		return ClassGeneral, VariantNone, 8, 8
	}
}

// floatClassFor picks a scalar float value's register class: SSE
// registers back double/single precision directly, while long doubles
// route through the x87 stack's spill-backed model (spec §4.7: "mix SSE
// and x87 as required by the ABI").
func floatClassFor(kind ssa.FloatKind) (RegClass, FloatVariant, int, int) {
	if kind == ssa.FloatLongDouble {
		return ClassSpill, VariantLongDouble, 10, 16
	}
	return ClassFloat, VariantDouble, 8, 8
}

func complexVariant(kind ssa.FloatKind) FloatVariant {
	if kind == ssa.FloatLongDouble {
		return VariantLongDouble
	}
	return VariantDouble
}

// componentWidth is the byte stride between a complex value's real and
// imaginary halves within its ClassFloatPair slot.
func componentWidth(kind ssa.FloatKind) int {
	if kind == ssa.FloatLongDouble {
		return 16
	}
	return 8
}

func componentClass(kind ssa.FloatKind) (RegClass, FloatVariant, int, int) {
	if kind == ssa.FloatLongDouble {
		return ClassSpill, VariantLongDouble, 10, 16
	}
	return ClassFloat, VariantDouble, 8, 8
}

func blockLabel(funcName string, block ssa.BlockID) string {
	return fmt.Sprintf("%s.L%d", funcName, block)
}

func emitImm(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	op := Operand{Kind: OperandVReg, VReg: dst, Width: 8}
	if in.Op.Code == ssa.OpImmFloat {
		sel.asm.Emit(Instruction{Op: AsmMovSD, Operands: [3]Operand{op, {Kind: OperandImmFloat, ImmFloat: in.Op.ImmFloat}}, NumOps: 2, SourceRef: ref})
		if in.Op.FloatKind == ssa.FloatLongDouble {
			// dst is this ref's canonical x87 spill slot (classify routed
			// it to ClassSpill); register it so a later x87.load(ref)
			// finds the value here instead of allocating an orphan slot.
			sel.x87.spillOf[ref] = dst
		}
		return nil
	}
	sel.asm.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{op, {Kind: OperandImmInt, ImmInt: in.Op.ImmInt}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitBinArith(op AsmOpcode) emitter {
	return func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
		dst := sel.vregFor(ref, in)
		a, b := sel.vregOf(in.Op.Ref1), sel.vregOf(in.Op.Ref2)
		sel.emitMove(dst, a, 8)
		sel.asm.Emit(Instruction{Op: op, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, Width: 8}, {Kind: OperandVReg, VReg: b, Width: 8}}, NumOps: 2, SourceRef: ref})
		return nil
	}
}

func emitUnArith(op AsmOpcode) emitter {
	return func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
		dst := sel.vregFor(ref, in)
		a := sel.vregOf(in.Op.Ref1)
		sel.emitMove(dst, a, 8)
		sel.asm.Emit(Instruction{Op: op, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, Width: 8}}, NumOps: 1, SourceRef: ref})
		return nil
	}
}

func emitCompare(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	a := sel.vregOf(in.Op.Ref1)
	// A constant second operand was kept off the schedule (schedule.go's
	// isConstFoldedCompareOperand), so it is encoded as an immediate here.
	var bOp Operand
	if bin, err := sel.f.Get(in.Op.Ref2); err == nil && bin.Op.Code == ssa.OpImmInt {
		bOp = Operand{Kind: OperandImmInt, ImmInt: bin.Op.ImmInt}
	} else if err == nil && bin.Op.Code == ssa.OpImmFloat {
		bOp = Operand{Kind: OperandImmFloat, ImmFloat: bin.Op.ImmFloat}
	} else {
		bOp = Operand{Kind: OperandVReg, VReg: sel.vregOf(in.Op.Ref2)}
	}
	sel.asm.Emit(Instruction{Op: AsmCmpGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: a}, bOp}, NumOps: 2, SourceRef: ref})
	sel.asm.Emit(Instruction{Op: AsmSetCC, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, Width: 1}, {Kind: OperandImmInt, ImmInt: int64(in.Op.CompareOp)}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitConvert(op AsmOpcode) emitter {
	return func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
		dst := sel.vregFor(ref, in)
		src := sel.vregOf(in.Op.Ref1)
		sel.asm.Emit(Instruction{Op: op, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: src}}, NumOps: 2, SourceRef: ref})
		return nil
	}
}

func emitLoad(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	addr := sel.vregOf(in.Op.Ref1)
	sel.asm.Emit(Instruction{Op: AsmLoad, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: addr}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitStore(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	addr := sel.vregOf(in.Op.Ref1)
	val := sel.vregOf(in.Op.Ref2)
	sel.asm.Emit(Instruction{Op: AsmStore, Operands: [3]Operand{{Kind: OperandVReg, VReg: addr}, {Kind: OperandVReg, VReg: val}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitSelect(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	cond := sel.vregOf(in.Op.Ref1)
	whenTrue := sel.vregOf(in.Op.Ref2)
	whenFalse := sel.vregOf(in.Op.Ref3)
	sel.emitMove(dst, whenFalse, 8)
	sel.asm.Emit(Instruction{Op: AsmCmpGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: cond}, {Kind: OperandImmInt, ImmInt: 0}}, NumOps: 2, SourceRef: ref})
	sel.asm.Emit(Instruction{Op: AsmCmove, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: whenTrue}, {Kind: OperandImmInt, ImmInt: int64(in.Op.CondVariant)}}, NumOps: 3, SourceRef: ref})
	return nil
}

func emitCall(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	call, err := sel.f.CallOf(in.Op.Call)
	if err != nil {
		return err
	}
	sel.markLiveAcrossCall(in.Block)
	sel.x87.flush(sel.asm)
	for i, arg := range call.Args {
		v := sel.vregOf(arg)
		if i < len(ArgRegs) {
			sel.asm.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{{Kind: OperandPhysReg, Phys: ArgRegs[i]}, {Kind: OperandVReg, VReg: v}}, NumOps: 2, SourceRef: ref})
		} else {
			sel.asm.Emit(Instruction{Op: AsmPush, Operands: [3]Operand{{Kind: OperandVReg, VReg: v}}, NumOps: 1, SourceRef: ref})
		}
	}
	if in.Op.HasIndirect {
		target := sel.vregOf(in.Op.Indirect)
		sel.asm.Emit(Instruction{Op: AsmCall, Operands: [3]Operand{{Kind: OperandVReg, VReg: target}}, NumOps: 1, SourceRef: ref})
	} else {
		sel.asm.Emit(Instruction{Op: AsmCall, Operands: [3]Operand{{Kind: OperandImmInt, ImmInt: int64(call.Decl)}}, NumOps: 1, SourceRef: ref})
	}
	if call.Output == ref {
		dst := sel.vregFor(ref, in)
		sel.asm.VRegs[dst].Preferred = RAX
		sel.asm.Emit(Instruction{Op: AsmMovGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandPhysReg, Phys: RAX}}, NumOps: 2, SourceRef: ref})
	}
	return nil
}

func emitGetVariable(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	symOp := Operand{Kind: OperandLabel, Label: in.Op.Symbol}
	if sel.pic {
		symOp = Operand{Kind: OperandRIPConst, Label: in.Op.Symbol}
	}
	sel.asm.Emit(Instruction{Op: AsmLea, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, symOp}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitOverflowArith(op AsmOpcode) emitter {
	return func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
		dst := sel.vregFor(ref, in)
		a, b := sel.vregOf(in.Op.Ref1), sel.vregOf(in.Op.Ref2)
		sel.emitMove(dst, a, 8)
		sel.asm.Emit(Instruction{Op: op, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: b}}, NumOps: 2, SourceRef: ref})
		if in.Op.Ref3 != container.RefNone {
			flag := sel.vregOf(in.Op.Ref3)
			sel.asm.Emit(Instruction{Op: AsmSetCC, Operands: [3]Operand{{Kind: OperandVReg, VReg: flag, Width: 1}, {Kind: OperandImmInt, ImmInt: int64(in.Op.CompareOp)}}, NumOps: 2, SourceRef: ref})
		}
		return nil
	}
}

func emitAtomicLoad(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	addr := sel.vregOf(in.Op.Ref1)
	sel.asm.Emit(Instruction{Op: AsmLoad, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: addr}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitAtomicStore(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	addr, val := sel.vregOf(in.Op.Ref1), sel.vregOf(in.Op.Ref2)
	sel.asm.Emit(Instruction{Op: AsmStore, Operands: [3]Operand{{Kind: OperandVReg, VReg: addr}, {Kind: OperandVReg, VReg: val}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitAtomicRMW(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	addr, val := sel.vregOf(in.Op.Ref1), sel.vregOf(in.Op.Ref2)
	sel.emitMove(dst, val, 8)
	sel.asm.Emit(Instruction{Op: AsmAddGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: addr}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitBitfieldExtract(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	src := sel.vregOf(in.Op.Ref1)
	sel.emitMove(dst, src, 8)
	sel.asm.Emit(Instruction{Op: AsmShrGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandImmInt, ImmInt: int64(in.Op.Offset)}}, NumOps: 2, SourceRef: ref})
	return nil
}

func emitBitfieldInsert(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	base, val := sel.vregOf(in.Op.Ref1), sel.vregOf(in.Op.Ref2)
	sel.emitMove(dst, base, 8)
	sel.asm.Emit(Instruction{Op: AsmOrGP, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: val}}, NumOps: 2, SourceRef: ref})
	return nil
}

// emitFloatArith lowers a scalar float add/sub/mul/div. Double/single
// precision goes through the SSE opcode directly; long double goes
// through the x87 stack's ref-keyed load/binOp/storeTop discipline (spec
// §4.7's x87_load/x87_ensure model), so a long-double operand already
// resident from a prior op is found via fxch rather than reloaded.
func emitFloatArith(sseOp, x87Op AsmOpcode) emitter {
	return func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
		dst := sel.vregFor(ref, in)
		if in.Op.FloatKind == ssa.FloatLongDouble {
			sel.x87.load(sel.asm, in.Op.Ref1)
			sel.x87.load(sel.asm, in.Op.Ref2)
			sel.x87.binOp(sel.asm, x87Op, ref)
			sel.x87.storeTop(sel.asm, dst)
			return nil
		}
		a, b := sel.vregOf(in.Op.Ref1), sel.vregOf(in.Op.Ref2)
		sel.emitMove(dst, a, 8)
		sel.asm.Emit(Instruction{Op: sseOp, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, Width: 8}, {Kind: OperandVReg, VReg: b, Width: 8}}, NumOps: 2, SourceRef: ref})
		return nil
	}
}

func emitFloatNeg(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	dst := sel.vregFor(ref, in)
	if in.Op.FloatKind == ssa.FloatLongDouble {
		sel.x87.load(sel.asm, in.Op.Ref1)
		sel.x87.unOp(sel.asm, AsmFchs, ref)
		sel.x87.storeTop(sel.asm, dst)
		return nil
	}
	src := sel.vregOf(in.Op.Ref1)
	sel.emitMove(dst, src, 8)
	sel.asm.Emit(Instruction{Op: AsmMulSD, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, Width: 8}, {Kind: OperandImmFloat, ImmFloat: -1}}, NumOps: 2, SourceRef: ref})
	return nil
}

// combineComponent lowers one component-wise binary op between an
// arbitrary byte offset of a and one of b, writing the result at dstOff
// within dst. Double precision loads+ops through SSE directly; long
// double loads both operands onto the x87 stack by hand (they address a
// sub-offset of a shared pair slot, not a single canonical SSA ref, so
// x87Stack.load's ref-keyed residency cache doesn't apply) and pops the
// result with binOp+popTop.
func (sel *Selector) combineComponent(dst VReg, dstOff int32, a VReg, aOff int32, b VReg, bOff int32, kind ssa.FloatKind, sseOp, x87Op AsmOpcode, ref ssa.Ref) {
	if kind == ssa.FloatLongDouble {
		sel.x87.ensure(sel.asm, 2)
		sel.asm.Emit(Instruction{Op: AsmFld, Operands: [3]Operand{{Kind: OperandVReg, VReg: b, SubOffset: bOff}}, NumOps: 1, SourceRef: ref})
		sel.x87.push(sel.asm, ref)
		sel.asm.Emit(Instruction{Op: AsmFld, Operands: [3]Operand{{Kind: OperandVReg, VReg: a, SubOffset: aOff}}, NumOps: 1, SourceRef: ref})
		sel.x87.push(sel.asm, ref)
		sel.x87.binOp(sel.asm, x87Op, ref)
		sel.x87.popTop(sel.asm, Operand{Kind: OperandVReg, VReg: dst, SubOffset: dstOff})
		return
	}
	sel.asm.Emit(Instruction{Op: AsmLoad, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, SubOffset: dstOff}, {Kind: OperandVReg, VReg: a, SubOffset: aOff}}, NumOps: 2, SourceRef: ref})
	sel.asm.Emit(Instruction{Op: sseOp, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, SubOffset: dstOff}, {Kind: OperandVReg, VReg: b, SubOffset: bOff}}, NumOps: 2, SourceRef: ref})
}

// negateComponent negates one component of a complex value at byte
// offset srcOff within src, writing the result to dstOff within dst.
func (sel *Selector) negateComponent(dst VReg, dstOff int32, src VReg, srcOff int32, kind ssa.FloatKind, ref ssa.Ref) {
	if kind == ssa.FloatLongDouble {
		sel.x87.ensure(sel.asm, 1)
		sel.asm.Emit(Instruction{Op: AsmFld, Operands: [3]Operand{{Kind: OperandVReg, VReg: src, SubOffset: srcOff}}, NumOps: 1, SourceRef: ref})
		sel.x87.push(sel.asm, ref)
		sel.x87.unOp(sel.asm, AsmFchs, ref)
		sel.x87.popTop(sel.asm, Operand{Kind: OperandVReg, VReg: dst, SubOffset: dstOff})
		return
	}
	sel.asm.Emit(Instruction{Op: AsmLoad, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, SubOffset: dstOff}, {Kind: OperandVReg, VReg: src, SubOffset: srcOff}}, NumOps: 2, SourceRef: ref})
	sel.asm.Emit(Instruction{Op: AsmMulSD, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, SubOffset: dstOff}, {Kind: OperandImmFloat, ImmFloat: -1}}, NumOps: 2, SourceRef: ref})
}

// emitComplexConstruct materialises a complex value from its two
// already-computed scalar halves, written into the two
// componentWidth-wide slots of one ClassFloatPair vreg (spec §4.7). That
// vreg always lives in a spill slot, not in a pair of registers.
func emitComplexConstruct(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	real := sel.vregOf(in.Op.Ref1)
	imag := sel.vregOf(in.Op.Ref2)
	dst := sel.vregFor(ref, in)
	width := int32(componentWidth(in.Op.FloatKind))
	sel.asm.Emit(Instruction{Op: AsmStore, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, {Kind: OperandVReg, VReg: real}}, NumOps: 2, SourceRef: ref})
	sel.asm.Emit(Instruction{Op: AsmStore, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst, SubOffset: width}, {Kind: OperandVReg, VReg: imag}}, NumOps: 2, SourceRef: ref})
	return nil
}

// emitComplexExtract reads one half (real when isReal, else imaginary)
// out of a complex value's pair slot.
func emitComplexExtract(isReal bool) emitter {
	return func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
		src := sel.vregOf(in.Op.Ref1)
		dst := sel.vregFor(ref, in)
		srcOp := Operand{Kind: OperandVReg, VReg: src}
		if !isReal {
			srcOp.SubOffset = int32(componentWidth(in.Op.FloatKind))
		}
		sel.asm.Emit(Instruction{Op: AsmLoad, Operands: [3]Operand{{Kind: OperandVReg, VReg: dst}, srcOp}, NumOps: 2, SourceRef: ref})
		return nil
	}
}

func emitComplexNeg(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	kind := in.Op.FloatKind
	width := int32(componentWidth(kind))
	src := sel.vregOf(in.Op.Ref1)
	dst := sel.vregFor(ref, in)
	sel.negateComponent(dst, 0, src, 0, kind, ref)
	sel.negateComponent(dst, width, src, width, kind, ref)
	return nil
}

// emitComplexAddSub lowers componentwise complex add/sub: each half is
// independent, so both halves use the same op.
func emitComplexAddSub(sseOp, x87Op AsmOpcode) emitter {
	return func(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
		kind := in.Op.FloatKind
		width := int32(componentWidth(kind))
		a := sel.vregOf(in.Op.Ref1)
		b := sel.vregOf(in.Op.Ref2)
		dst := sel.vregFor(ref, in)
		sel.combineComponent(dst, 0, a, 0, b, 0, kind, sseOp, x87Op, ref)
		sel.combineComponent(dst, width, a, width, b, width, kind, sseOp, x87Op, ref)
		return nil
	}
}

// emitComplexMul lowers (ar+ai*i)*(br+bi*i) = (ar*br-ai*bi) + (ar*bi+ai*br)*i
// through four cross-product temporaries and two combining ops.
func emitComplexMul(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	kind := in.Op.FloatKind
	width := int32(componentWidth(kind))
	a := sel.vregOf(in.Op.Ref1)
	b := sel.vregOf(in.Op.Ref2)
	dst := sel.vregFor(ref, in)
	class, variant, size, align := componentClass(kind)

	arbr := sel.asm.NewVReg(class, variant, size, align)
	aibi := sel.asm.NewVReg(class, variant, size, align)
	arbi := sel.asm.NewVReg(class, variant, size, align)
	aibr := sel.asm.NewVReg(class, variant, size, align)

	sel.combineComponent(arbr, 0, a, 0, b, 0, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(aibi, 0, a, width, b, width, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(arbi, 0, a, 0, b, width, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(aibr, 0, a, width, b, 0, kind, AsmMulSD, AsmFmul, ref)

	sel.combineComponent(dst, 0, arbr, 0, aibi, 0, kind, AsmSubSD, AsmFsub, ref)
	sel.combineComponent(dst, width, arbi, 0, aibr, 0, kind, AsmAddSD, AsmFadd, ref)
	return nil
}

// emitComplexDiv lowers (a)/(b) via the textbook denom = br^2+bi^2 form:
// real = (ar*br+ai*bi)/denom, imag = (ai*br-ar*bi)/denom. Not the
// overflow-resistant Smith's-algorithm form real compilers use — a
// deliberate simplification consistent with this backend's
// representative-subset scope (spec §4.7).
func emitComplexDiv(sel *Selector, ref ssa.Ref, in *ssa.Instr) error {
	kind := in.Op.FloatKind
	width := int32(componentWidth(kind))
	a := sel.vregOf(in.Op.Ref1)
	b := sel.vregOf(in.Op.Ref2)
	dst := sel.vregFor(ref, in)
	class, variant, size, align := componentClass(kind)

	brbr := sel.asm.NewVReg(class, variant, size, align)
	bibi := sel.asm.NewVReg(class, variant, size, align)
	denom := sel.asm.NewVReg(class, variant, size, align)
	arbr := sel.asm.NewVReg(class, variant, size, align)
	aibi := sel.asm.NewVReg(class, variant, size, align)
	numReal := sel.asm.NewVReg(class, variant, size, align)
	aibr := sel.asm.NewVReg(class, variant, size, align)
	arbi := sel.asm.NewVReg(class, variant, size, align)
	numImag := sel.asm.NewVReg(class, variant, size, align)

	sel.combineComponent(brbr, 0, b, 0, b, 0, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(bibi, 0, b, width, b, width, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(denom, 0, brbr, 0, bibi, 0, kind, AsmAddSD, AsmFadd, ref)

	sel.combineComponent(arbr, 0, a, 0, b, 0, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(aibi, 0, a, width, b, width, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(numReal, 0, arbr, 0, aibi, 0, kind, AsmAddSD, AsmFadd, ref)
	sel.combineComponent(dst, 0, numReal, 0, denom, 0, kind, AsmDivSD, AsmFdiv, ref)

	sel.combineComponent(aibr, 0, a, width, b, 0, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(arbi, 0, a, 0, b, width, kind, AsmMulSD, AsmFmul, ref)
	sel.combineComponent(numImag, 0, aibr, 0, arbi, 0, kind, AsmSubSD, AsmFsub, ref)
	sel.combineComponent(dst, width, numImag, 0, denom, 0, kind, AsmDivSD, AsmFdiv, ref)
	return nil
}
