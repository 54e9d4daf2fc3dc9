package codegen

import "sort"

// AssignKind is where a vreg ends up living once allocation decides.
type AssignKind int

const (
	AssignRegister AssignKind = iota
	AssignSpill                // asmcmp-container spill slot (e.g. x87 ClassSpill)
	AssignFrame                // a stack-frame slot (ClassLocalVariable)
)

// Assignment is one virtual register's final location.
type Assignment struct {
	Kind      AssignKind
	Phys      PhysReg
	SlotIndex int // index into the spill or frame area, by Kind
	Size      int
	Align     int
}

// Allocation is the whole-function result of register allocation: every
// vreg's Assignment, plus the total spill/frame area sizes devirtualization
// folds into the StackFrame (spec §4.7 "Register allocation").
type Allocation struct {
	ByVReg     []Assignment
	SpillArea  int
	FrameArea  int
}

// liveRange is a vreg's [start, end] instruction-index span: the index of
// its first appearance (as a def, conventionally operand 0 of a two/three
// operand form) through its last use.
type liveRange struct {
	vreg       VReg
	start, end int
}

// Allocate assigns every virtual register in asm either a physical
// register, a spill slot, or a frame slot, using a linear-scan pass over
// the instruction stream's live ranges — the same free-list discipline
// as a stack-machine register allocator (acquire on first need, release
// once nothing later reads it), generalized from a single register file
// to one pool per RegClass (spec §4.7's "Register allocation"). When a
// class's pool is exhausted, the range being allocated is the one
// spilled; ranges already holding a register keep it.
func Allocate(asm *Asmcmp) (*Allocation, error) {
	alloc := &Allocation{ByVReg: make([]Assignment, len(asm.VRegs))}

	ranges := computeLiveRanges(asm)

	var generalSpill, frameSlots int
	for vreg, info := range asm.VRegs {
		switch info.Class {
		case ClassLocalVariable:
			alloc.ByVReg[vreg] = Assignment{Kind: AssignFrame, SlotIndex: frameSlots, Size: alignedSize(info), Align: info.Align}
			frameSlots += alignedSize(info)
		case ClassSpill, ClassFloatPair:
			alloc.ByVReg[vreg] = Assignment{Kind: AssignSpill, SlotIndex: generalSpill, Size: alignedSize(info), Align: info.Align}
			generalSpill += alignedSize(info)
		}
	}

	generalPool := newRegPool(GeneralPurposeRegs)
	floatPool := newRegPool(FloatRegs)

	ordered := make([]liveRange, 0, len(ranges))
	for _, r := range ranges {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start < ordered[j].start })

	active := map[VReg]int{} // vreg -> end, for pools to know when to free
	for _, r := range ordered {
		info := asm.VRegs[r.vreg]
		if info.Class != ClassGeneral && info.Class != ClassFloat {
			// ClassSpill/ClassFloatPair/ClassLocalVariable were already
			// assigned directly above, independent of live-range position.
			continue
		}
		pool := generalPool
		if info.Class == ClassFloat {
			pool = floatPool
		}

		expireBefore(pool, active, r.start)

		var phys PhysReg
		var ok bool
		if info.Preferred != PhysNone && pool.takeSpecific(info.Preferred) {
			phys, ok = info.Preferred, true
		} else if info.PreferCalleeSaved {
			phys, ok = pool.takeCalleeSaved()
		}
		if !ok {
			phys, ok = pool.take()
		}
		if !ok {
			// Pool exhausted: spill this range rather than blocking
			// allocation on a register file of fixed size.
			alloc.ByVReg[r.vreg] = Assignment{Kind: AssignSpill, SlotIndex: generalSpill, Size: alignedSize(info), Align: max(info.Align, 8)}
			generalSpill += alignedSize(info)
			continue
		}
		alloc.ByVReg[r.vreg] = Assignment{Kind: AssignRegister, Phys: phys}
		active[r.vreg] = r.end
		pool.holder[phys] = r.vreg
	}

	alloc.SpillArea = generalSpill
	alloc.FrameArea = frameSlots
	return alloc, nil
}

func alignedSize(info VRegInfo) int {
	if info.Size <= 0 {
		return 8
	}
	align := info.Align
	if align <= 0 {
		align = 8
	}
	return (info.Size + align - 1) / align * align
}

// computeLiveRanges scans every instruction's operands once, recording the
// first and last instruction index at which each vreg appears. The first
// appearance doubles as the def point since every emitter in select.go
// writes an operand-0 destination before any later read of it (spec
// §4.7's emitters are required to hold this def-before-use shape so
// scheduling and allocation can both rely on linear position alone).
func computeLiveRanges(asm *Asmcmp) map[VReg]liveRange {
	ranges := make(map[VReg]liveRange)
	for idx, in := range asm.Instrs {
		for i := 0; i < in.NumOps; i++ {
			op := in.Operands[i]
			if op.Kind != OperandVReg {
				continue
			}
			if r, ok := ranges[op.VReg]; ok {
				r.end = idx
				ranges[op.VReg] = r
			} else {
				ranges[op.VReg] = liveRange{vreg: op.VReg, start: idx, end: idx}
			}
		}
	}
	return ranges
}

// regPool is a free-list over one RegClass's physical registers, grounded
// on the teacher's RegisterAllocator: a pool of indices handed out on
// Alloc and pushed back on Free, with a reservation table standing in for
// the teacher's "locked" set.
type regPool struct {
	order  []PhysReg
	free   []PhysReg
	holder map[PhysReg]VReg
}

func newRegPool(order []PhysReg) *regPool {
	p := &regPool{order: order, holder: make(map[PhysReg]VReg)}
	p.free = append([]PhysReg(nil), order...)
	return p
}

func (p *regPool) take() (PhysReg, bool) {
	if len(p.free) == 0 {
		return PhysNone, false
	}
	r := p.free[0]
	p.free = p.free[1:]
	return r, true
}

// takeCalleeSaved takes the first free callee-saved register, if any —
// the preference markLiveAcrossCall (select.go) records for a value that
// survives a call still inside its own block.
func (p *regPool) takeCalleeSaved() (PhysReg, bool) {
	for i, r := range p.free {
		if CalleeSaved[r] {
			p.free = append(p.free[:i], p.free[i+1:]...)
			return r, true
		}
	}
	return PhysNone, false
}

func (p *regPool) takeSpecific(want PhysReg) bool {
	for i, r := range p.free {
		if r == want {
			p.free = append(p.free[:i], p.free[i+1:]...)
			return true
		}
	}
	return false
}

func (p *regPool) release(r PhysReg) {
	delete(p.holder, r)
	p.free = append(p.free, r)
}

// expireBefore releases every active vreg whose range has already ended
// by position pos, returning its register to the pool.
func expireBefore(pool *regPool, active map[VReg]int, pos int) {
	for vreg, end := range active {
		if end < pos {
			for phys, holder := range pool.holder {
				if holder == vreg {
					pool.release(phys)
				}
			}
			delete(active, vreg)
		}
	}
}
