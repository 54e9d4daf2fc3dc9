// Package driver is the compilation-session glue (spec §2 item 8): it
// holds one container.Allocator per compile (cmd/cc hands it to its
// input loader), runs the pipeline registry's passes, codegen, and
// ir.Compact for a whole module, and renders the final build summary.
// The passes, analyses and codegen use each ssa.Function's own Alloc. Grounded on the teacher's internal/build.Builder
// (manifest-driven build with a BuildConfig/ProjectManifest pair) and
// cmd/sentra's os.Args dispatch, adapted to this repo's flag-driven
// single-command surface (spec §6).
package driver

import (
	"encoding/json"
	"flag"
	"os"
	"strings"
)

// Config is the compiler's configuration (spec §6 flags), mirroring the
// teacher's BuildConfig: a plain struct with JSON tags, filled from flags
// first and optionally overlaid by a project file.
type Config struct {
	ABI         string   `json:"abi"`
	PIC         bool     `json:"pic"`
	DebugInfo   bool     `json:"debug_info"`
	ValgrindX87 bool     `json:"valgrind_x87"`
	Passes      []string `json:"passes"`
	OutputPath  string   `json:"output_path"`
}

// DefaultConfig is the configuration used when neither flags nor a
// project file override a field.
func DefaultConfig() Config {
	return Config{
		ABI:        "system-v-amd64",
		OutputPath: "a.s",
	}
}

// ParseFlags builds a Config from the command surface spec §6 names,
// using the standard flag package the way internal/buildutil parses its
// own flags — no third-party CLI library appears anywhere in the pack
// for this.
func ParseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := DefaultConfig()

	abi := fs.String("abi", cfg.ABI, "target ABI (only system-v-amd64 is implemented)")
	pic := fs.Bool("pic", false, "emit position-independent constant references")
	debugInfo := fs.Bool("debug-info", false, "emit source-location comments in the assembly output")
	valgrindX87 := fs.Bool("valgrind-x87", false, "use Valgrind-compatible x87 stack-exchange sequences")
	passes := fs.String("passes", "", "comma-separated optimization pass list (default: the registry's order)")
	output := fs.String("o", cfg.OutputPath, "output assembly file path")
	project := fs.String("project", "", "path to a cc.json project file overlaying these flags")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ABI = *abi
	cfg.PIC = *pic
	cfg.DebugInfo = *debugInfo
	cfg.ValgrindX87 = *valgrindX87
	cfg.OutputPath = *output
	if *passes != "" {
		cfg.Passes = strings.Split(*passes, ",")
	}

	if *project != "" {
		if err := overlayProjectFile(&cfg, *project); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// overlayProjectFile merges a cc.json project file over cfg, the way
// ProjectManifest's BuildConfig field overlays sentra.json onto
// flag-derived defaults. Fields absent from the file leave the
// flag-derived value untouched, since json.Unmarshal only writes fields
// present in the document.
func overlayProjectFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}
