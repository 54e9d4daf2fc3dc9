package ssa

import (
	"cc/internal/ccerrors"
	"cc/internal/container"
)

// Instr is one instruction: its operation, owning block, and its two
// independent doubly-linked-list memberships — the data list (insertion
// order, defines is-sequenced-before) and the control-flow list (the
// terminator-ending subsequence). A dropped instruction's Block is
// BlockNone and it is unlinked from both lists but its Ref is never
// reused (spec §3 invariant 5).
type Instr struct {
	Op          Op
	Block       BlockID
	DataPrev    Ref
	DataNext    Ref
	ControlPrev Ref
	ControlNext Ref
	OnControl   bool
	ControlFree bool // "control-side-effect-free" flag
	Seq         int  // position in the data list at append time
}

// Block is a maximal straight-line instruction sequence ending, if
// reachable, in a terminator.
type Block struct {
	ID            BlockID
	DataHead, DataTail       Ref
	ControlHead, ControlTail Ref
	Phis          []PhiRef
	Calls         []CallRef
	InlineAsms    []InlineAsmNodeRef
	PublicLabels  []string
	Dropped       bool
	nextSeq       int
}

// uses is the four-way back-edge set the use index keeps per Ref (spec
// §3): plain-instruction operands, phi links, call arguments, inline-asm
// parameters.
type uses struct {
	Instrs     *container.HashSet[Ref]
	Phis       *container.HashSet[PhiRef]
	Calls      *container.HashSet[CallRef]
	InlineAsms *container.HashSet[InlineAsmNodeRef]
}

func newUses(alloc *container.Allocator) *uses {
	h := container.HashInt32[Ref]
	return &uses{
		Instrs:     container.NewHashSet[Ref](alloc, h),
		Phis:       container.NewHashSet[PhiRef](alloc, h),
		Calls:      container.NewHashSet[CallRef](alloc, h),
		InlineAsms: container.NewHashSet[InlineAsmNodeRef](alloc, h),
	}
}

// Function is the per-function SSA container (spec §3/§4.3). It owns
// every block, instruction, phi, call, and inline-asm node by arena
// index; every cross-link elsewhere is one of those indices.
type Function struct {
	Name       string
	Alloc      *container.Allocator
	Blocks     *container.Arena[Block]
	Instrs     *container.Arena[Instr]
	Phis       *container.Arena[Phi]
	Calls      *container.Arena[Call]
	InlineAsms *container.Arena[InlineAsmNode]
	Entry      BlockID

	// Variadic marks this function itself as a C variadic function (spec
	// §4.7's vararg register-save area is part of the callee's own
	// prologue, sized by the ABI's fixed reg_save_area layout rather than
	// anything a call site carries). Front ends lower a variadic
	// definition by setting this after NewFunction.
	Variadic bool

	use map[Ref]*uses
}

// NewFunction creates an empty container with a single entry block.
func NewFunction(alloc *container.Allocator, name string) *Function {
	f := &Function{
		Name:       name,
		Alloc:      alloc,
		Blocks:     container.NewArena[Block](alloc),
		Instrs:     container.NewArena[Instr](alloc),
		Phis:       container.NewArena[Phi](alloc),
		Calls:      container.NewArena[Call](alloc),
		InlineAsms: container.NewArena[InlineAsmNode](alloc),
		use:        make(map[Ref]*uses),
	}
	f.Entry = f.NewBlock()
	return f
}

// NewBlock appends an empty block and returns its id.
func (f *Function) NewBlock() BlockID {
	return f.Blocks.Alloc(Block{DataHead: container.RefNone, DataTail: container.RefNone,
		ControlHead: container.RefNone, ControlTail: container.RefNone})
}

func (f *Function) block(id BlockID) (*Block, error) {
	b, err := f.Blocks.Get(id)
	if err != nil {
		return nil, ccerrors.NewInternal("unknown block %d: %v", id, err)
	}
	return b, nil
}

func (f *Function) instr(ref Ref) (*Instr, error) {
	in, err := f.Instrs.Get(ref)
	if err != nil {
		return nil, ccerrors.NewInternal("unknown instruction ref %d: %v", ref, err)
	}
	return in, nil
}

func (f *Function) usesOf(ref Ref) *uses {
	u, ok := f.use[ref]
	if !ok {
		u = newUses(f.Alloc)
		f.use[ref] = u
	}
	return u
}

// recordOperandUses adds user to the Instrs use-set of every plain
// operand op reads, per the use-index functional invariant (spec §3
// invariant 4: an operand appears in the user's input set iff the user
// appears in the operand's use set).
func (f *Function) recordOperandUses(user Ref, op *Op) {
	for _, p := range op.OperandPtrs() {
		if *p == container.RefNone {
			continue
		}
		f.usesOf(*p).Instrs.Add(user)
	}
}

func (f *Function) dropOperandUses(user Ref, op *Op) {
	for _, p := range op.OperandPtrs() {
		if *p == container.RefNone {
			continue
		}
		if u, ok := f.use[*p]; ok {
			u.Instrs.Remove(user)
		}
	}
}

// NewInstruction appends op to block's data list and records its operand
// back-edges in the use index. The instruction is not placed on any
// control-flow list — callers that want it on the control path call
// AddControl or InsertControlBefore next (spec §4.3).
func (f *Function) NewInstruction(blockID BlockID, op Op) (Ref, error) {
	b, err := f.block(blockID)
	if err != nil {
		return container.RefNone, err
	}
	ref := f.Instrs.Alloc(Instr{
		Op:       op,
		Block:    blockID,
		DataPrev: b.DataTail,
		DataNext: container.RefNone,
		Seq:      b.nextSeq,
	})
	b.nextSeq++
	if b.DataTail == container.RefNone {
		b.DataHead = ref
	} else {
		tail, err := f.instr(b.DataTail)
		if err != nil {
			return container.RefNone, err
		}
		tail.DataNext = ref
	}
	b.DataTail = ref

	in, _ := f.instr(ref)
	f.recordOperandUses(ref, &in.Op)
	return ref, nil
}

// AddControl appends ref to the end of its owning block's control-flow
// list. ref must already exist in the block's data list.
func (f *Function) AddControl(ref Ref) error {
	in, err := f.instr(ref)
	if err != nil {
		return err
	}
	if in.OnControl {
		return ccerrors.NewInternal("instruction %d already on control-flow list", ref)
	}
	b, err := f.block(in.Block)
	if err != nil {
		return err
	}
	in.ControlPrev = b.ControlTail
	in.ControlNext = container.RefNone
	if b.ControlTail == container.RefNone {
		b.ControlHead = ref
	} else {
		tail, err := f.instr(b.ControlTail)
		if err != nil {
			return err
		}
		tail.ControlNext = ref
	}
	b.ControlTail = ref
	in.OnControl = true
	return nil
}

// InsertControlBefore inserts ref into the control-flow list immediately
// before existing, which must already be on that list.
func (f *Function) InsertControlBefore(ref, existing Ref) error {
	in, err := f.instr(ref)
	if err != nil {
		return err
	}
	before, err := f.instr(existing)
	if err != nil {
		return err
	}
	if !before.OnControl {
		return ccerrors.NewInternal("instruction %d is not on a control-flow list", existing)
	}
	if in.Block != before.Block {
		return ccerrors.NewInternal("control-flow insertion across blocks (%d into %d)", ref, existing)
	}
	b, err := f.block(in.Block)
	if err != nil {
		return err
	}
	in.ControlPrev = before.ControlPrev
	in.ControlNext = existing
	if before.ControlPrev == container.RefNone {
		b.ControlHead = ref
	} else {
		prev, err := f.instr(before.ControlPrev)
		if err != nil {
			return err
		}
		prev.ControlNext = ref
	}
	before.ControlPrev = ref
	in.OnControl = true
	return nil
}

// DropControl unlinks ref from its control-flow list only; it remains on
// the data list and resolves normally for every other purpose.
func (f *Function) DropControl(ref Ref) error {
	in, err := f.instr(ref)
	if err != nil {
		return err
	}
	if !in.OnControl {
		return nil
	}
	b, err := f.block(in.Block)
	if err != nil {
		return err
	}
	if in.ControlPrev != container.RefNone {
		prev, err := f.instr(in.ControlPrev)
		if err != nil {
			return err
		}
		prev.ControlNext = in.ControlNext
	} else {
		b.ControlHead = in.ControlNext
	}
	if in.ControlNext != container.RefNone {
		next, err := f.instr(in.ControlNext)
		if err != nil {
			return err
		}
		next.ControlPrev = in.ControlPrev
	} else {
		b.ControlTail = in.ControlPrev
	}
	in.ControlPrev, in.ControlNext = container.RefNone, container.RefNone
	in.OnControl = false
	return nil
}

// DropInstr removes ref entirely: it requires no control-flow links and
// no retained use, sets the block-id sentinel, and unlinks it from the
// data list. ref is never reused (spec §3 invariant 5, §4.3); accessors
// still resolve it afterwards, with Block set to BlockNone, rather than
// reporting it as not found.
func (f *Function) DropInstr(ref Ref) error {
	in, err := f.instr(ref)
	if err != nil {
		return err
	}
	if in.OnControl {
		return ccerrors.NewInternal("cannot drop instruction %d: still on a control-flow list", ref)
	}
	if u, ok := f.use[ref]; ok && (u.Instrs.Len() > 0 || u.Phis.Len() > 0 || u.Calls.Len() > 0 || u.InlineAsms.Len() > 0) {
		return ccerrors.NewInternal("cannot drop instruction %d: still referenced", ref)
	}
	b, err := f.block(in.Block)
	if err != nil {
		return err
	}
	if in.DataPrev != container.RefNone {
		prev, err := f.instr(in.DataPrev)
		if err != nil {
			return err
		}
		prev.DataNext = in.DataNext
	} else {
		b.DataHead = in.DataNext
	}
	if in.DataNext != container.RefNone {
		next, err := f.instr(in.DataNext)
		if err != nil {
			return err
		}
		next.DataPrev = in.DataPrev
	} else {
		b.DataTail = in.DataPrev
	}
	f.dropOperandUses(ref, &in.Op)
	delete(f.use, ref)
	in.Block = BlockNone
	in.DataPrev, in.DataNext = container.RefNone, container.RefNone
	return nil
}

// DataList returns every instruction ref in a block's data (insertion)
// order.
func (f *Function) DataList(blockID BlockID) ([]Ref, error) {
	b, err := f.block(blockID)
	if err != nil {
		return nil, err
	}
	var out []Ref
	for r := b.DataHead; r != container.RefNone; {
		out = append(out, r)
		in, err := f.instr(r)
		if err != nil {
			return nil, err
		}
		r = in.DataNext
	}
	return out, nil
}

// ControlList returns every instruction ref on a block's control-flow
// list in order; the last entry, if any, is the block's terminator.
func (f *Function) ControlList(blockID BlockID) ([]Ref, error) {
	b, err := f.block(blockID)
	if err != nil {
		return nil, err
	}
	var out []Ref
	for r := b.ControlHead; r != container.RefNone; {
		out = append(out, r)
		in, err := f.instr(r)
		if err != nil {
			return nil, err
		}
		r = in.ControlNext
	}
	return out, nil
}

// Terminator returns the block's last control-flow instruction, if any.
func (f *Function) Terminator(blockID BlockID) (Ref, bool, error) {
	b, err := f.block(blockID)
	if err != nil {
		return container.RefNone, false, err
	}
	if b.ControlTail == container.RefNone {
		return container.RefNone, false, nil
	}
	return b.ControlTail, true, nil
}

// Get returns the instruction's current Op and owning block. It fails
// only for a ref that was never allocated; a dropped ref still resolves,
// with Block set to BlockNone, so callers check for that sentinel.
func (f *Function) Get(ref Ref) (*Instr, error) {
	return f.instr(ref)
}

// BlockOf returns the live block for id.
func (f *Function) BlockOf(id BlockID) (*Block, error) {
	return f.block(id)
}

// MoveInstruction relocates a single data-list entry (never a control-flow
// instruction) to the end of target's data list. Used by GVN's hoist-to-
// closest-common-dominator step (spec §4.6.2) and local-allocation
// sinking (spec §4.6.5).
func (f *Function) MoveInstruction(ref, target BlockID) error {
	in, err := f.instr(ref)
	if err != nil {
		return err
	}
	if in.OnControl {
		return ccerrors.NewInternal("cannot move control-flow instruction %d between blocks", ref)
	}
	if in.Block == target {
		return nil
	}
	from, err := f.block(in.Block)
	if err != nil {
		return err
	}
	to, err := f.block(target)
	if err != nil {
		return err
	}
	if in.DataPrev != container.RefNone {
		prev, err := f.instr(in.DataPrev)
		if err != nil {
			return err
		}
		prev.DataNext = in.DataNext
	} else {
		from.DataHead = in.DataNext
	}
	if in.DataNext != container.RefNone {
		next, err := f.instr(in.DataNext)
		if err != nil {
			return err
		}
		next.DataPrev = in.DataPrev
	} else {
		from.DataTail = in.DataPrev
	}

	in.DataPrev = to.DataTail
	in.DataNext = container.RefNone
	if to.DataTail == container.RefNone {
		to.DataHead = ref
	} else {
		tail, err := f.instr(to.DataTail)
		if err != nil {
			return err
		}
		tail.DataNext = ref
	}
	to.DataTail = ref
	in.Block = target
	in.Seq = to.nextSeq
	to.nextSeq++
	return nil
}

// InsertDataBefore relocates ref, already present somewhere in the same
// block's data list, to sit immediately before existing. Used by
// phi-to-select (spec §4.6.4) to put a freshly built select where the
// phi it replaces used to live, so instructions sequenced between them
// keep seeing a definition before their use.
func (f *Function) InsertDataBefore(ref, existing Ref) error {
	in, err := f.instr(ref)
	if err != nil {
		return err
	}
	before, err := f.instr(existing)
	if err != nil {
		return err
	}
	if in.Block != before.Block {
		return ccerrors.NewInternal("data-list insertion across blocks (%d into %d)", ref, existing)
	}
	if ref == existing {
		return nil
	}
	b, err := f.block(in.Block)
	if err != nil {
		return err
	}

	// Unlink ref from its current position.
	if in.DataPrev != container.RefNone {
		prev, err := f.instr(in.DataPrev)
		if err != nil {
			return err
		}
		prev.DataNext = in.DataNext
	} else {
		b.DataHead = in.DataNext
	}
	if in.DataNext != container.RefNone {
		next, err := f.instr(in.DataNext)
		if err != nil {
			return err
		}
		next.DataPrev = in.DataPrev
	} else {
		b.DataTail = in.DataPrev
	}

	// Relink it immediately before existing.
	in.DataPrev = before.DataPrev
	in.DataNext = existing
	if before.DataPrev == container.RefNone {
		b.DataHead = ref
	} else {
		prev, err := f.instr(before.DataPrev)
		if err != nil {
			return err
		}
		prev.DataNext = ref
	}
	before.DataPrev = ref
	return nil
}

// MergeBlockInto splices from's entire data list and control-flow list
// onto the end of into's, reparenting every moved instruction's Block
// field, and appends from's phi/call/inline-asm node and public-label
// lists onto into's. from is left empty; it is the caller's
// responsibility that nothing still treats from as a live successor —
// block merging (spec §4.6.1) redirects every such edge itself before or
// immediately after calling this.
func (f *Function) MergeBlockInto(from, into BlockID) error {
	fb, err := f.block(from)
	if err != nil {
		return err
	}
	ib, err := f.block(into)
	if err != nil {
		return err
	}

	for r := fb.DataHead; r != container.RefNone; {
		in, err := f.instr(r)
		if err != nil {
			return err
		}
		next := in.DataNext
		in.Block = into
		in.DataPrev = ib.DataTail
		if ib.DataTail == container.RefNone {
			ib.DataHead = r
		} else {
			tail, err := f.instr(ib.DataTail)
			if err != nil {
				return err
			}
			tail.DataNext = r
		}
		ib.DataTail = r
		in.DataNext = container.RefNone
		in.Seq = ib.nextSeq
		ib.nextSeq++
		r = next
	}

	for r := fb.ControlHead; r != container.RefNone; {
		in, err := f.instr(r)
		if err != nil {
			return err
		}
		next := in.ControlNext
		in.ControlPrev = ib.ControlTail
		if ib.ControlTail == container.RefNone {
			ib.ControlHead = r
		} else {
			tail, err := f.instr(ib.ControlTail)
			if err != nil {
				return err
			}
			tail.ControlNext = r
		}
		ib.ControlTail = r
		in.ControlNext = container.RefNone
		r = next
	}

	for _, id := range fb.Phis {
		phi, err := f.Phis.Get(id)
		if err != nil {
			return err
		}
		phi.Block = into
	}
	ib.Phis = append(ib.Phis, fb.Phis...)
	ib.Calls = append(ib.Calls, fb.Calls...)
	ib.InlineAsms = append(ib.InlineAsms, fb.InlineAsms...)
	ib.PublicLabels = append(ib.PublicLabels, fb.PublicLabels...)

	fb.DataHead, fb.DataTail = container.RefNone, container.RefNone
	fb.ControlHead, fb.ControlTail = container.RefNone, container.RefNone
	fb.Phis, fb.Calls, fb.InlineAsms, fb.PublicLabels = nil, nil, nil, nil
	fb.Dropped = true
	return nil
}
