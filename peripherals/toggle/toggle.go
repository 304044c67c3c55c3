// Package toggle implements the Switch utility (spec §4.6): a degenerate
// component that syncs a configured integer once at start, useful as a
// wiring pattern template for elaboration-time scalar propagation. Grounded
// on original_source/models/board/switch_impl.cpp, transcribed onto
// simcore's fabric.WireMaster[int].
package toggle

import (
	"simcore/config"
	"simcore/fabric"
	"simcore/trace"
)

// Periph is a Switch instance (spec's Switch component).
type Periph struct {
	*fabric.Component

	out   *fabric.WireMaster[int]
	value int
}

// New builds a Switch named name under parent, reading its required
// "value" key from cfg (original's Switch::build()).
func New(parent *fabric.Component, name string, cfg config.Map, tracer trace.Tracer) (*Periph, error) {
	comp := fabric.NewComponent(name, parent, cfg, tracer)

	p := &Periph{Component: comp}
	p.out = fabric.NewWireMaster[int](comp.Path() + ".out")
	comp.RegisterMaster("out", p.out)

	value, err := cfg.Int("value")
	if err != nil {
		return nil, &fabric.ElaborationError{Component: comp.Path(), Cause: err}
	}
	p.value = value
	return p, nil
}

// Out returns the wire<int> master port the configured value is synced on.
func (p *Periph) Out() *fabric.WireMaster[int] { return p.out }

// Start syncs the configured value once (original's Switch::start()). The
// platform package calls Start on every component once elaboration (all
// binding) has completed.
func (p *Periph) Start() {
	p.out.Sync(p.Tracer(), p.value)
}
