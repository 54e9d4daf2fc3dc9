package codegen

// variadicSaveAreaSize is the System V AMD64 reg_save_area a variadic
// function's prologue must populate for va_start to walk: 6 integer
// argument registers (8 bytes each) plus 8 SSE argument registers
// (16 bytes each, since va_arg reads them as the widest vector width).
const variadicSaveAreaSize = 6*8 + 8*16

// Devirtualize rewrites every virtual operand in asm to a concrete
// physical-register or memory operand per alloc, and computes the
// function's final StackFrame (spec §4.7 "Devirtualization"): its size
// and alignment, including the preserved-register save area for the
// callee-saved registers the allocation used, an MXCSR save slot when
// the function both emits an x87 instruction and makes a call, an x87
// control-word save slot when any x87 instruction was emitted, and the
// vararg register-save area when the function is variadic. variadic
// marks the function itself as
// variadic (a property of the callee's own prologue, not of any one call
// site), which sizes VarargSaveArea.
func Devirtualize(asm *Asmcmp, alloc *Allocation, variadic bool) error {
	usedCallee := map[PhysReg]bool{}

	for i := range asm.Instrs {
		in := &asm.Instrs[i]
		for j := 0; j < in.NumOps; j++ {
			op := &in.Operands[j]
			if op.Kind != OperandVReg {
				continue
			}
			a := alloc.ByVReg[op.VReg]
			switch a.Kind {
			case AssignRegister:
				op.Kind = OperandPhysReg
				op.Phys = a.Phys
				if CalleeSaved[a.Phys] {
					usedCallee[a.Phys] = true
				}
			case AssignSpill:
				op.Kind = OperandMemory
				op.Phys = PhysNone
				op.Disp = int32(-(alloc.FrameArea + a.SlotIndex + a.Size)) + op.SubOffset
			case AssignFrame:
				op.Kind = OperandMemory
				op.Phys = PhysNone
				op.Disp = int32(-(a.SlotIndex + a.Size)) + op.SubOffset
			}
		}
	}

	hasX87 := false
	hasCall := false
	for _, in := range asm.Instrs {
		switch in.Op {
		case AsmFld, AsmFstp, AsmFxch, AsmFdecstp, AsmFadd, AsmFsub, AsmFmul, AsmFdiv, AsmFchs:
			hasX87 = true
		case AsmCall:
			hasCall = true
		}
	}

	asm.Frame.LocalsSize = alloc.FrameArea
	asm.Frame.SpillAreaSize = alloc.SpillArea
	asm.Frame.PreservedRegSave = len(usedCallee) * 8
	asm.Frame.X87ControlSave = hasX87
	asm.Frame.MXCSRSave = hasCall && hasX87
	asm.Frame.Alignment = 16
	if variadic {
		asm.Frame.VarargSaveArea = variadicSaveAreaSize
	}

	total := asm.Frame.LocalsSize + asm.Frame.SpillAreaSize + asm.Frame.PreservedRegSave + asm.Frame.VarargSaveArea
	if asm.Frame.X87ControlSave {
		total += 4
	}
	if asm.Frame.MXCSRSave {
		total += 4
	}
	if rem := total % asm.Frame.Alignment; rem != 0 {
		total += asm.Frame.Alignment - rem
	}
	asm.Frame.TotalSize = total
	return nil
}
