package ssa

import (
	"cc/internal/ccerrors"
	"cc/internal/container"
	"cc/internal/ir"
)

// Call owns a call site's argument list and optional return-space
// reference; its SSA value (when it has one) is the Output instruction
// (opcode OpCall, Op.Call == this record's id).
type Call struct {
	Decl        ir.DeclID
	Args        []Ref
	ReturnSpace Ref // RefNone if none
	Output      Ref
}

// NewCall creates a call node in block and returns its output Ref.
func (f *Function) NewCall(block BlockID, decl ir.DeclID, args []Ref, returnSpace Ref, indirect Ref, hasIndirect bool) (Ref, CallRef, error) {
	id := f.Calls.Alloc(Call{Decl: decl, Args: append([]Ref(nil), args...), ReturnSpace: returnSpace})
	out, err := f.NewInstruction(block, Op{Code: OpCall, Call: id, Indirect: indirect, HasIndirect: hasIndirect})
	if err != nil {
		return container.RefNone, container.RefNone, err
	}
	call, _ := f.Calls.Get(id)
	call.Output = out
	for _, a := range args {
		if a != container.RefNone {
			f.usesOf(a).Calls.Add(id)
		}
	}
	if returnSpace != container.RefNone {
		f.usesOf(returnSpace).Calls.Add(id)
	}
	b, err := f.block(block)
	if err != nil {
		return container.RefNone, container.RefNone, err
	}
	b.Calls = append(b.Calls, id)
	return out, id, nil
}

func (f *Function) CallOf(id CallRef) (*Call, error) {
	c, err := f.Calls.Get(id)
	if err != nil {
		return nil, ccerrors.NewInternal("unknown call %d: %v", id, err)
	}
	return c, nil
}

// InlineAsmParam is one parameter of an inline-asm node: the value it
// reads, the location it may load from or store into, and its type.
type InlineAsmParam struct {
	ReadRef      Ref
	LoadStoreRef Ref
	Type         ir.TypeID
}

// InlineAsmNode owns one inline-assembly instantiation: the template id
// it instantiates (from the owning ir.Module), its parameters, and the
// blocks its jump targets may transfer control to.
type InlineAsmNode struct {
	Asm         ir.InlineAsmID
	Params      []InlineAsmParam
	JumpTargets map[string]BlockID
	Output      Ref
}

// NewInlineAsm creates an inline-asm node in block and returns its output
// Ref (used for inline asm producing a value; pass OpUnreachable-style
// sentinel handling is the caller's concern when it doesn't).
func (f *Function) NewInlineAsm(block BlockID, asm ir.InlineAsmID, params []InlineAsmParam, jumps map[string]BlockID) (Ref, InlineAsmNodeRef, error) {
	id := f.InlineAsms.Alloc(InlineAsmNode{Asm: asm, Params: append([]InlineAsmParam(nil), params...), JumpTargets: jumps})
	out, err := f.NewInstruction(block, Op{Code: OpInlineAsm, InlineAsm: id})
	if err != nil {
		return container.RefNone, container.RefNone, err
	}
	node, _ := f.InlineAsms.Get(id)
	node.Output = out
	for _, p := range params {
		if p.ReadRef != container.RefNone {
			f.usesOf(p.ReadRef).InlineAsms.Add(id)
		}
		if p.LoadStoreRef != container.RefNone {
			f.usesOf(p.LoadStoreRef).InlineAsms.Add(id)
		}
	}
	b, err := f.block(block)
	if err != nil {
		return container.RefNone, container.RefNone, err
	}
	b.InlineAsms = append(b.InlineAsms, id)
	return out, id, nil
}

func (f *Function) InlineAsmOf(id InlineAsmNodeRef) (*InlineAsmNode, error) {
	n, err := f.InlineAsms.Get(id)
	if err != nil {
		return nil, ccerrors.NewInternal("unknown inline-asm node %d: %v", id, err)
	}
	return n, nil
}
