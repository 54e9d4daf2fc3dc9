// Package pipeline implements the SSA-to-SSA optimization passes (spec
// §4.6): block merging, global value numbering, phi propagation,
// phi-to-select conversion, and local-allocation sinking, plus the pass
// registry the driver's `-passes` flag selects from.
package pipeline

import "cc/internal/ssa"

// Pass is one optimization pass. Run reports whether it changed f; the
// driver loop (Run below) keeps invoking the configured pass list until a
// full round leaves every pass reporting no change.
type Pass interface {
	Name() string
	Run(f *ssa.Function) (changed bool, err error)
}

type passFunc struct {
	name string
	fn   func(f *ssa.Function) (bool, error)
}

func (p passFunc) Name() string { return p.name }
func (p passFunc) Run(f *ssa.Function) (bool, error) { return p.fn(f) }

// registry is the process-wide ordered list of known passes (spec §9:
// "global state limited to the pass registry"). register is called only
// from this package's own init-time pass definitions below.
var registry []Pass

func register(name string, fn func(f *ssa.Function) (bool, error)) {
	registry = append(registry, passFunc{name: name, fn: fn})
}

func init() {
	register("block-merge", BlockMerge)
	register("gvn", GVN)
	register("phi-propagate", PhiPropagate)
	register("phi-select", PhiToSelect)
	register("local-alloc-sink", LocalAllocSink)
}

// Registered returns every known pass, in the registry's default order.
func Registered() []Pass {
	out := make([]Pass, len(registry))
	copy(out, registry)
	return out
}

// ByName looks up a registered pass; ok is false if name is unknown.
func ByName(name string) (Pass, bool) {
	for _, p := range registry {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Run executes passes against f in order, repeating the full list until
// a pass over it makes no further change (a fixpoint), per spec §4.6's
// "iterate to fixpoint" requirement on block merging and phi propagation
// — generalised here to the whole configured pipeline, since later
// passes can re-expose opportunities earlier ones already passed over
// (e.g. phi-to-select can make a block a block-merge candidate again).
func Run(f *ssa.Function, passes []Pass) error {
	for {
		anyChanged := false
		for _, p := range passes {
			changed, err := p.Run(f)
			if err != nil {
				return err
			}
			anyChanged = anyChanged || changed
		}
		if !anyChanged {
			return nil
		}
	}
}
