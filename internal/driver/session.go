package driver

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"cc/internal/ccerrors"
	"cc/internal/codegen"
	"cc/internal/container"
	"cc/internal/ir"
	"cc/internal/pipeline"
	"cc/internal/ssa"
)

// Session is one compilation run: the owner of the run's arena
// allocator, which cmd/cc hands to its input loader; CompileModule does
// not pass it on. It is freed implicitly when the session is dropped
// since container.Allocator holds no OS resources of its own.
type Session struct {
	ID     uuid.UUID
	Config Config
	Alloc  *container.Allocator

	passes []pipeline.Pass
}

// NewSession starts a session for one compile, resolving cfg.Passes
// against the pipeline registry (spec §6 "-passes").
func NewSession(cfg Config) (*Session, error) {
	passes, err := resolvePasses(cfg.Passes)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:     uuid.New(),
		Config: cfg,
		Alloc:  container.NewAllocator(),
		passes: passes,
	}, nil
}

func resolvePasses(names []string) ([]pipeline.Pass, error) {
	if len(names) == 0 {
		return pipeline.Registered(), nil
	}
	out := make([]pipeline.Pass, 0, len(names))
	for _, name := range names {
		p, ok := pipeline.ByName(name)
		if !ok {
			return nil, ccerrors.New(ccerrors.InvalidParameter, "unknown pass %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

// FunctionResult is one function's finished backend output.
type FunctionResult struct {
	Name string
	Text string
	Size int
}

// Summary is the whole run's build-summary report: function count,
// total assembly size, elapsed time, and compile-unit id.
type Summary struct {
	CompileUnitID string
	Functions     []FunctionResult
	Elapsed       time.Duration
}

// String renders the human-readable build summary line, the way
// internal/build.Builder prints "Build complete: %s (%d bytes)" —
// adapted here with go-humanize so a developer reads "14 kB" rather than
// a bare byte count.
func (s *Summary) String() string {
	total := 0
	for _, fn := range s.Functions {
		total += fn.Size
	}
	return fmt.Sprintf("compiled %d function(s), %s of assembly, in %s (unit %s)",
		len(s.Functions), humanize.Bytes(uint64(total)), s.Elapsed.Round(time.Millisecond), s.CompileUnitID)
}

// CompileModule runs the whole pipeline for every function in functions
// (already lowered to SSA — spec §2.8 treats IR-to-SSA lowering as the
// front end's seam, out of this repo's scope) plus ir.Compact over mod,
// and returns the assembled build summary. Functions are compiled in a
// stable, sorted order so a rebuild with unchanged input produces
// byte-identical output (spec §8's determinism property, generalized
// from single-function to whole-module compiles).
func (s *Session) CompileModule(mod *ir.Module, functions map[string]*ssa.Function) (*Summary, error) {
	start := time.Now()

	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := codegen.Options{
		ABI:         s.Config.ABI,
		PIC:         s.Config.PIC,
		DebugInfo:   s.Config.DebugInfo,
		ValgrindX87: s.Config.ValgrindX87,
	}

	results := make([]FunctionResult, 0, len(names))
	for _, name := range names {
		f := functions[name]
		if err := pipeline.Run(f, s.passes); err != nil {
			return nil, fmt.Errorf("optimizing %s: %w", name, err)
		}
		log.Printf("optimized %s", name)

		result, err := codegen.Compile(f, s.ID, opts)
		if err != nil {
			return nil, fmt.Errorf("generating code for %s: %w", name, err)
		}
		results = append(results, FunctionResult{Name: name, Text: result.Text, Size: len(result.Text)})
		log.Printf("generated %s (%s)", name, humanize.Bytes(uint64(len(result.Text))))
	}

	if mod != nil {
		if err := ir.Compact(mod); err != nil {
			return nil, fmt.Errorf("compacting module: %w", err)
		}
	}

	return &Summary{
		CompileUnitID: s.ID.String(),
		Functions:     results,
		Elapsed:       time.Since(start),
	}, nil
}

// Assembly concatenates every function's rendered text into one output
// stream, the shape cmd/cc writes to -o.
func (sum *Summary) Assembly() string {
	var b strings.Builder
	for _, fn := range sum.Functions {
		b.WriteString(fn.Text)
	}
	return b.String()
}
