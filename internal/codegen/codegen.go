package codegen

import (
	"cc/internal/analysis"
	"cc/internal/ssa"

	"github.com/google/uuid"
)

// Options gathers the backend's external toggles (spec §6: -abi, -pic,
// -debug-info, -valgrind-x87). ABI is carried for forward compatibility
// with a future non-System-V target; this backend only implements the
// one spec §4.7 names.
type Options struct {
	ABI         string
	PIC         bool
	DebugInfo   bool
	ValgrindX87 bool
}

// Result is one function's finished backend output: its devirtualized
// instruction container (for callers that want the structured form, e.g.
// tests) and its rendered assembly text.
type Result struct {
	Asmcmp *Asmcmp
	Text   string
}

// Compile runs the whole AMD64 backend pipeline for one SSA function:
// instruction selection (scheduling included), register allocation,
// devirtualization, and text emission (spec §4.7's five named stages).
// A compileUnitID (driver.Session stamps one per compilation with
// google/uuid) is recorded on the result for the debug-info tracker to
// key its entries against.
func Compile(f *ssa.Function, compileUnitID uuid.UUID, opts Options) (*Result, error) {
	s, err := analysis.Build(f)
	if err != nil {
		return nil, err
	}
	live, err := analysis.BuildLiveness(f, s)
	if err != nil {
		return nil, err
	}

	sel := NewSelector(f, s, live, opts.ValgrindX87, opts.PIC)
	asm, err := sel.Select()
	if err != nil {
		return nil, err
	}
	asm.CompileUnitID = compileUnitID.String()

	alloc, err := Allocate(asm)
	if err != nil {
		return nil, err
	}
	if err := Devirtualize(asm, alloc, f.Variadic); err != nil {
		return nil, err
	}

	text := Emit(asm, EmitOptions{PIC: opts.PIC, DebugInfo: opts.DebugInfo})
	return &Result{Asmcmp: asm, Text: text}, nil
}
