// Command cc is the optimizer-and-AMD64-backend compiler driver (spec
// §6). It reads no source itself — the front end that produces an
// internal/ir.Module and its per-function internal/ssa.Function bodies
// is an external collaborator (spec §1) — so this binary's job is to
// parse the command surface and run the pipeline/analysis/codegen
// stages driver.Session wires together, reporting a build summary the
// way the teacher's cmd/sentra build command does.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"cc/internal/ccerrors"
	"cc/internal/container"
	"cc/internal/driver"
	"cc/internal/ir"
	"cc/internal/ssa"
)

func main() {
	fs := flag.NewFlagSet("cc", flag.ExitOnError)
	cfg, err := driver.ParseFlags(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("cc: %v", err)
	}

	sess, err := driver.NewSession(cfg)
	if err != nil {
		log.Fatalf("cc: %v", err)
	}

	module, functions, err := loadInput(sess.Alloc)
	if err != nil {
		log.Fatalf("cc: %v", err)
	}

	summary, err := sess.CompileModule(module, functions)
	if err != nil {
		log.Fatalf("cc: %v", err)
	}

	if err := os.WriteFile(cfg.OutputPath, []byte(summary.Assembly()), 0o644); err != nil {
		log.Fatalf("cc: writing %s: %v", cfg.OutputPath, err)
	}

	fmt.Println(summary.String())
}

// loadInput is the seam a C front end (lexer, parser, IR builder, and
// IR-to-SSA lowering) would fill in: this repo's scope starts at an
// already-built internal/ir.Module with its functions already lowered to
// internal/ssa.Function bodies (spec §1 treats the front end as an
// external collaborator). alloc is the session's arena allocator
// (spec §5: one allocator owns every allocation a compile makes); a
// real front end would build its ir.Module and ssa.Function values
// against it rather than opening one of its own. Until one is wired
// in, report that plainly instead of fabricating input.
func loadInput(alloc *container.Allocator) (*ir.Module, map[string]*ssa.Function, error) {
	return nil, nil, ccerrors.New(ccerrors.NotFound, "no front end wired: cc expects a prebuilt internal/ir.Module and lowered internal/ssa.Function bodies")
}
