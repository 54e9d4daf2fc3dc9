package ssa

import "cc/internal/container"

// The helpers below are the common instruction-construction idioms used
// by both the IR-to-SSA lowering this package's Function is built to
// receive, and by this repository's own tests and pipeline fixtures:
// they all just call NewInstruction/AddControl with a fully-formed Op, so
// nothing here is special-cased versus what any caller could write
// directly.

// Imm materialises an integer immediate.
func (f *Function) Imm(block BlockID, v int64) (Ref, error) {
	return f.NewInstruction(block, Op{Code: OpImmInt, ImmInt: v})
}

// BinOp emits a two-operand arithmetic/bitwise/comparison instruction.
func (f *Function) BinOp(block BlockID, code Opcode, a, b Ref) (Ref, error) {
	return f.NewInstruction(block, Op{Code: code, Ref1: a, Ref2: b})
}

// UnOp emits a one-operand instruction (negation, logical not, return).
func (f *Function) UnOp(block BlockID, code Opcode, a Ref) (Ref, error) {
	return f.NewInstruction(block, Op{Code: code, Ref1: a})
}

// Jump emits and places an unconditional jump terminator.
func (f *Function) Jump(block, target BlockID) (Ref, error) {
	ref, err := f.NewInstruction(block, Op{Code: OpJump, Ref1: container.RefNone, Target: target})
	if err != nil {
		return container.RefNone, err
	}
	return ref, f.AddControl(ref)
}

// Branch emits and places a conditional branch terminator.
func (f *Function) Branch(block BlockID, cond Ref, variant CondVariant, target, alt BlockID) (Ref, error) {
	ref, err := f.NewInstruction(block, Op{Code: OpBranch, Ref1: cond, CondVariant: variant, Target: target, Alt: alt})
	if err != nil {
		return container.RefNone, err
	}
	return ref, f.AddControl(ref)
}

// BranchCompare emits and places a compare-and-branch terminator.
func (f *Function) BranchCompare(block BlockID, cmp CompareOp, a, b Ref, target, alt BlockID) (Ref, error) {
	ref, err := f.NewInstruction(block, Op{Code: OpBranchCompare, Ref1: a, Ref2: b, CompareOp: cmp, Target: target, Alt: alt})
	if err != nil {
		return container.RefNone, err
	}
	return ref, f.AddControl(ref)
}

// Return emits and places a return terminator.
func (f *Function) Return(block BlockID, value Ref) (Ref, error) {
	ref, err := f.NewInstruction(block, Op{Code: OpReturn, Ref1: value})
	if err != nil {
		return container.RefNone, err
	}
	return ref, f.AddControl(ref)
}

// Select emits a phi-to-select replacement value (spec §4.6.4).
func (f *Function) Select(block BlockID, variant CondVariant, cond, whenTrue, whenFalse Ref) (Ref, error) {
	return f.NewInstruction(block, Op{Code: OpSelect, CondVariant: variant, Ref1: cond, Ref2: whenTrue, Ref3: whenFalse})
}

// AllocLocal emits a stack-allocation instruction.
func (f *Function) AllocLocal(block BlockID, size, align Ref, locality uint32) (Ref, error) {
	return f.NewInstruction(block, Op{Code: OpAllocLocal, Ref1: size, Ref2: align, Flags: locality})
}

