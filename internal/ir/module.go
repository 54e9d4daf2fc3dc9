package ir

import "cc/internal/container"

// TypeID, DeclID and InlineAsmID are the small integer identifiers spec §3
// says every instruction reference must resolve through.
type TypeID = container.Ref
type DeclID = container.Ref
type InlineAsmID = container.Ref

// FuncDecl is a callee signature: an optional name (anonymous for
// indirect-call-only declarations), parameter/return type ids, and the
// vararg/returns-twice flags the code generator needs for ABI lowering.
type FuncDecl struct {
	Name          string // "" means none
	ParamType     TypeID
	ReturnType    TypeID
	Vararg        bool
	ReturnsTwice bool
}

// Instr is one step of a function's pre-SSA linear opcode stream. The
// concrete C semantics of Opcode are owned by the front end; the
// optimizer core only needs the references an instruction carries, since
// those are exactly what compaction and the IR-to-SSA lowering walk.
type Instr struct {
	Opcode        string
	TypeRefs      []TypeID
	DeclRefs      []DeclID
	SymbolRefs    []string
	InlineAsmRefs []InlineAsmID
}

// Block is a maximal straight-line run of Instr in a function body.
type Block struct {
	Label  string
	Instrs []Instr
}

// Function is a function body: an ordered sequence of blocks with a
// linear instruction stream, the representation the front end hands the
// optimizer before SSA lowering.
type Function struct {
	Name   string
	Blocks []Block
}

// DataInitKind tags one slot of a Data object's sparse initializer array.
type DataInitKind int

const (
	DataUndefined DataInitKind = iota
	DataInteger
	DataFloat32
	DataFloat64
	DataLongDouble
	DataComplex
	DataString
	DataRawBytes
	DataAggregate
	DataBitPattern
	DataPointer
	DataStringPointer
)

// DataInit is one initializer value. Pointer and StringPointer carry the
// referenced symbol name in Symbol — these are exactly the edges symbol
// reachability (spec §4.2) walks.
type DataInit struct {
	Kind   DataInitKind
	Int    int64
	Float  float64
	Str    string
	Raw    []byte
	Nested []DataInit
	Symbol string
}

// Data is a named data object: a type plus a sparse map from byte/element
// offset to initializer (sparse because trailing zero-fill is implicit).
type Data struct {
	Type TypeID
	Init map[int]DataInit
}

// IdentifierScope classifies how a symbol name is visible outside its
// translation unit.
type IdentifierScope int

const (
	ScopeImport IdentifierScope = iota
	ScopeExport
	ScopeExportWeak
	ScopeLocal
	ScopeThreadLocalImport
	ScopeThreadLocalExport
)

// Identifier is what a symbol name resolves to: a visibility scope and an
// optional alias to another symbol name.
type Identifier struct {
	Scope IdentifierScope
	Alias string // "" means no alias
}

// InlineAsmRecord is a module-level inline-assembly template: its literal
// text, the symbols it parametrises over, and the jump targets it can
// transfer control to (used directly by inline asm that appears in data
// initializers or outside any function; per-instruction inline asm inside
// a function body is modeled by ssa.InlineAsm once lowered).
type InlineAsmRecord struct {
	Template     string
	Parameters   []string
	JumpTargets  []string
}

// Module owns every object named in spec §3: named types, function
// declarations, function bodies, data objects, the symbol table, and
// inline-asm records. Every cross-reference is an integer id or a symbol
// name, never a pointer, so the module composes with Arena-backed
// storage exactly like the SSA container does (spec §9).
type Module struct {
	Alloc       *container.Allocator
	Types       *container.Arena[NamedType]
	Decls       *container.Arena[FuncDecl]
	InlineAsms  *container.Arena[InlineAsmRecord]
	Functions   map[string]*Function
	Data        map[string]*Data
	Identifiers map[string]*Identifier
	Constructors []string
	Destructors  []string
}

// NewModule creates an empty module backed by alloc.
func NewModule(alloc *container.Allocator) *Module {
	return &Module{
		Alloc:       alloc,
		Types:       container.NewArena[NamedType](alloc),
		Decls:       container.NewArena[FuncDecl](alloc),
		InlineAsms:  container.NewArena[InlineAsmRecord](alloc),
		Functions:   make(map[string]*Function),
		Data:        make(map[string]*Data),
		Identifiers: make(map[string]*Identifier),
	}
}
