package codegen

import "cc/internal/ssa"

// x87StackCapacity is the hardware's stack depth (spec §4.7: "Capacity
// is 8").
const x87StackCapacity = 8

// x87Stack is the model stack: an ordered sequence of SSA instruction
// references currently occupying x87 register-stack slots, top first.
// Selection mutates this model in lockstep with the fld/fxch/fstp
// instructions it emits, so later x87 ops can find an already-resident
// operand without re-deriving hardware state.
type x87Stack struct {
	slots   []ssa.Ref // slots[0] is the top of stack (st(0))
	spillOf map[ssa.Ref]VReg
	valgrind bool
}

func newX87Stack(valgrind bool) *x87Stack {
	return &x87Stack{spillOf: make(map[ssa.Ref]VReg), valgrind: valgrind}
}

// ensure makes room for n more pushes, spilling tail entries to their
// virtual spill slots and popping them from the model until the stack
// has capacity (spec §4.7: "x87_ensure(capacity)... spills tail entries
// to their virtual spill slots and pops them from the model").
func (x *x87Stack) ensure(a *Asmcmp, n int) {
	for len(x.slots)+n > x87StackCapacity {
		x.spillTail(a)
	}
}

func (x *x87Stack) spillTail(a *Asmcmp) {
	if len(x.slots) == 0 {
		return
	}
	tail := x.slots[len(x.slots)-1]
	spill, ok := x.spillOf[tail]
	if !ok {
		spill = a.NewVReg(ClassSpill, VariantNone, 10, 16) // long-double slot
		x.spillOf[tail] = spill
	}
	depth := len(x.slots) - 1
	x.fxchToTop(a, depth)
	a.Emit(Instruction{Op: AsmFstp, Operands: [3]Operand{{Kind: OperandVReg, VReg: spill}}, NumOps: 1, SourceRef: tail})
	x.slots = x.slots[1:]
}

// load brings ref to the top of the model stack, either by an fxch chain
// (if already resident) or by loading from its spill slot after ensuring
// capacity (spec §4.7 "x87_load(ref)").
func (x *x87Stack) load(a *Asmcmp, ref ssa.Ref) {
	for i, r := range x.slots {
		if r == ref {
			x.fxchToTop(a, i)
			return
		}
	}
	x.ensure(a, 1)
	spill, ok := x.spillOf[ref]
	if !ok {
		spill = a.NewVReg(ClassSpill, VariantNone, 10, 16)
		x.spillOf[ref] = spill
	}
	a.Emit(Instruction{Op: AsmFld, Operands: [3]Operand{{Kind: OperandVReg, VReg: spill}}, NumOps: 1, SourceRef: ref})
	x.slots = append([]ssa.Ref{ref}, x.slots...)
}

// push records a freshly computed value as occupying the top of the
// model stack, without emitting anything (the producing instruction
// itself left it there).
func (x *x87Stack) push(a *Asmcmp, ref ssa.Ref) {
	x.ensure(a, 1)
	x.slots = append([]ssa.Ref{ref}, x.slots...)
}

// binOp emits a two-operand x87 arithmetic instruction (faddp/fsubp/
// fmulp/fdivp-style: operates on the top two slots, pops one, leaves the
// result relabeled result at the new top) — spec §4.7's complex and
// long-double arithmetic share this pop-and-relabel shape.
func (x *x87Stack) binOp(a *Asmcmp, op AsmOpcode, result ssa.Ref) {
	a.Emit(Instruction{Op: op, SourceRef: result})
	x.slots = x.slots[1:]
	x.slots[0] = result
}

// unOp emits a one-operand, in-place x87 instruction (fchs) that leaves
// the top slot occupied by a new logical value without changing depth.
func (x *x87Stack) unOp(a *Asmcmp, op AsmOpcode, result ssa.Ref) {
	a.Emit(Instruction{Op: op, SourceRef: result})
	x.relabelTop(result)
}

// relabelTop renames the model's top entry in place — used when an
// in-place x87 instruction changes what logical value occupies the slot
// without pushing or popping it.
func (x *x87Stack) relabelTop(ref ssa.Ref) {
	x.slots[0] = ref
}

// storeTop pops the top model entry to its own canonical spill slot,
// recording the spillOf mapping so a later load(ref) can find it again.
func (x *x87Stack) storeTop(a *Asmcmp, spill VReg) {
	top := x.slots[0]
	x.spillOf[top] = spill
	x.popTop(a, Operand{Kind: OperandVReg, VReg: spill})
}

// popTop pops the top model entry with an fstp into dstOp directly,
// without recording a reusable spill mapping — used when the result's
// home is a sub-offset of some other value's slot (a complex number's
// real or imaginary half) rather than the popped value's own canonical
// spill location.
func (x *x87Stack) popTop(a *Asmcmp, dstOp Operand) {
	top := x.slots[0]
	a.Emit(Instruction{Op: AsmFstp, Operands: [3]Operand{dstOp}, NumOps: 1, SourceRef: top})
	x.slots = x.slots[1:]
}

// flush spills every live x87 entry back to memory before an instruction
// that would clobber the stack — calls, block boundaries, and complex
// multi-step lowerings (spec §4.7 "x87_flush").
func (x *x87Stack) flush(a *Asmcmp) {
	for len(x.slots) > 0 {
		x.spillTail(a)
	}
}

// fxchToTop brings the entry at model depth i to the top. In
// Valgrind-compatible mode this always goes through explicit fxch chains
// (never fdecstp), matching spec §4.7's "the generator uses explicit
// fxch+fstp instead of fdecstp to satisfy tool assumptions." Outside that
// mode the behaviour is identical here since this model never emits
// fdecstp at all — fdecstp only matters for a rotate-without-exchange
// optimisation this backend doesn't attempt. The valgrind flag is stored
// on the struct but nothing reads it: neither selection nor emit.go
// changes its output with it.
func (x *x87Stack) fxchToTop(a *Asmcmp, depth int) {
	if depth == 0 {
		return
	}
	a.Emit(Instruction{Op: AsmFxch, Operands: [3]Operand{{Kind: OperandImmInt, ImmInt: int64(depth)}}, NumOps: 1})
	x.slots[0], x.slots[depth] = x.slots[depth], x.slots[0]
}
