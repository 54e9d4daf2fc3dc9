package codegen

// PhysReg is a concrete AMD64 register (spec §4.7, System V ABI, the
// only ABI variant spec §6 names). PhysNone marks "unassigned" /
// "unconstrained" in a preallocation hint.
type PhysReg int

const (
	PhysNone PhysReg = iota

	RAX
	RBX
	RCX
	RDX
	RSI
	RDI
	RBP
	RSP
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
)

// GeneralPurposeRegs is the allocation order for ClassGeneral virtual
// registers: caller-saved scratch regs first (cheapest to use without a
// save/restore), callee-saved regs last, RBP/RSP excluded (frame
// pointer and stack pointer are reserved — spec §4.7 devirtualization
// reserves them for the frame itself).
var GeneralPurposeRegs = []PhysReg{RAX, RCX, RDX, RSI, RDI, R8, R9, R10, R11, RBX, R12, R13, R14, R15}

// CalleeSaved is the subset of GeneralPurposeRegs the ABI requires a
// function to preserve across calls — devirtualization's preserved-
// register save area (spec §4.7) covers whichever of these the
// allocator actually used.
var CalleeSaved = map[PhysReg]bool{RBX: true, R12: true, R13: true, R14: true, R15: true}

// FloatRegs is the allocation order for ClassFloat virtual registers
// (ClassFloatPair vregs always get a spill slot instead).
var FloatRegs = []PhysReg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}

// ArgRegs is the System V integer argument-passing order, consulted by
// the variable allocator for parameter locations (spec §4.7 "function-
// parameter locations").
var ArgRegs = []PhysReg{RDI, RSI, RDX, RCX, R8, R9}

// ArgFloatRegs is the System V SSE argument-passing order.
var ArgFloatRegs = []PhysReg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}

// Name renders a physical register's AT&T-syntax name.
func (r PhysReg) Name() string {
	switch r {
	case RAX:
		return "%rax"
	case RBX:
		return "%rbx"
	case RCX:
		return "%rcx"
	case RDX:
		return "%rdx"
	case RSI:
		return "%rsi"
	case RDI:
		return "%rdi"
	case RBP:
		return "%rbp"
	case RSP:
		return "%rsp"
	case R8:
		return "%r8"
	case R9:
		return "%r9"
	case R10:
		return "%r10"
	case R11:
		return "%r11"
	case R12:
		return "%r12"
	case R13:
		return "%r13"
	case R14:
		return "%r14"
	case R15:
		return "%r15"
	case XMM0:
		return "%xmm0"
	case XMM1:
		return "%xmm1"
	case XMM2:
		return "%xmm2"
	case XMM3:
		return "%xmm3"
	case XMM4:
		return "%xmm4"
	case XMM5:
		return "%xmm5"
	case XMM6:
		return "%xmm6"
	case XMM7:
		return "%xmm7"
	default:
		return "%<none>"
	}
}
