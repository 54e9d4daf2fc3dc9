package codegen

import "cc/internal/ssa"

// scheduleCallback decides, per instruction, whether the scheduler keeps
// it on the linear order handed to instruction selection, and which of
// its operands it should announce as dependencies (spec §4.7
// "Scheduling": "the scheduler callback decides, per instruction, whether
// to schedule it and which dependencies to announce").
type scheduleCallback func(f *ssa.Function, in *ssa.Instr) (schedule bool, deps []ssa.Ref, err error)

// defaultScheduleCallback implements spec §4.7's named special cases.
// SSA's data-list order already respects def-before-use, so everything
// else schedules as-is with its plain operand set as dependencies:
//
//   - a comparison's constant second operand is kept off the scheduled
//     list (it is folded straight into the compare's operand encoding at
//     selection time, never materialised on its own);
//   - a call site announces all of its arguments, plus an indirect-call
//     target reference if it has one, as dependencies regardless of
//     their own scheduling state, so the allocator sees them live up to
//     the call;
//   - local-lifetime markers have no opcode in this IR's subset, so that
//     elision rule is a no-op here.
func defaultScheduleCallback(f *ssa.Function, in *ssa.Instr) (bool, []ssa.Ref, error) {
	if in.Op.Code == ssa.OpCall {
		call, err := f.CallOf(in.Op.Call)
		if err != nil {
			return false, nil, err
		}
		return true, callDependencies(call, &in.Op), nil
	}
	return true, operandRefs(&in.Op), nil
}

// scheduleBlock produces the linear order instruction selection consumes
// for one block, driven by cb.
func scheduleBlock(f *ssa.Function, list []ssa.Ref, cb scheduleCallback) ([]ssa.Ref, error) {
	skip := map[ssa.Ref]bool{}
	for _, ref := range list {
		in, err := f.Get(ref)
		if err != nil {
			return nil, err
		}
		if isConstFoldedCompareOperand(f, in) {
			skip[in.Op.Ref2] = true
		}
	}

	out := make([]ssa.Ref, 0, len(list))
	for _, ref := range list {
		if skip[ref] {
			continue
		}
		in, err := f.Get(ref)
		if err != nil {
			return nil, err
		}
		scheduled, _, err := cb(f, in)
		if err != nil {
			return nil, err
		}
		if scheduled {
			out = append(out, ref)
		}
	}
	return out, nil
}

// isConstFoldedCompareOperand reports whether in is a comparison whose
// second operand is an immediate — that immediate is elided from the
// scheduled list and folded into the compare's own encoding instead.
func isConstFoldedCompareOperand(f *ssa.Function, in *ssa.Instr) bool {
	if in.Op.Code != ssa.OpICmp {
		return false
	}
	b, err := f.Get(in.Op.Ref2)
	if err != nil {
		return false
	}
	return b.Op.Code == ssa.OpImmInt || b.Op.Code == ssa.OpImmFloat
}

// operandRefs returns every plain-value operand ref an op reads.
func operandRefs(op *ssa.Op) []ssa.Ref {
	ptrs := op.OperandPtrs()
	out := make([]ssa.Ref, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// callDependencies returns every ref a call site depends on for
// scheduling purposes: its arguments plus, if present, its indirect
// target.
func callDependencies(call *ssa.Call, op *ssa.Op) []ssa.Ref {
	deps := append([]ssa.Ref(nil), call.Args...)
	if op.HasIndirect {
		deps = append(deps, op.Indirect)
	}
	return deps
}
