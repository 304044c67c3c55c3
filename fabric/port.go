package fabric

import "simcore/trace"

// Master is a typed master port: it holds the bound slave's handler (type F,
// a concrete per-interface-kind function type — see wire.go/i2c.go/uart.go/
// ioreq.go) and whether it is currently bound. Per DESIGN NOTES §9, "is
// bound" is modeled as an Option over the binding record: a nil *F means
// unbound, eliminating the teacher's function-pointer-cast-plus-void*
// pattern entirely.
type Master[F any] struct {
	kind   string
	bound  *F
	warner *trace.OnceWarner
	site   string
}

// NewMaster constructs an unbound master port of the given interface kind
// name (used only for diagnostics, e.g. "i2c", "uart", "wire<int>"). site
// identifies this port for once-per-site unbound-sync warnings.
func NewMaster[F any](kind, site string) *Master[F] {
	return &Master[F]{kind: kind, warner: trace.NewOnceWarner(), site: site}
}

// Kind returns the interface kind name.
func (m *Master[F]) Kind() string { return m.kind }

// IsBound reports whether a slave handler is currently bound.
func (m *Master[F]) IsBound() bool { return m.bound != nil }

// Bind attaches handler as the peer this master port synchronously invokes.
// A master port may be bound to at most one slave port (spec §3 invariant);
// rebinding simply replaces the previous peer, matching elaboration-time
// wiring where each port is bound exactly once.
func (m *Master[F]) Bind(handler F) {
	m.bound = &handler
}

// Handler returns the bound handler and true, or the zero value and false
// if unbound.
func (m *Master[F]) Handler() (F, bool) {
	if m.bound == nil {
		var zero F
		return zero, false
	}
	return *m.bound, true
}

// WarnUnbound reports (once per site) that a sync was attempted on an
// unbound master port, per spec §4.2: "if unbound, the call must be
// observable as a warning and becomes a no-op."
func (m *Master[F]) WarnUnbound(t trace.Tracer) {
	m.warner.WarnOnce(t, m.site, "sync on unbound %s master port %q dropped", m.kind, m.site)
}

// Slave is a typed slave port: just a registered handler plus a kind tag for
// the introspectable PortRef surface. A slave port is "bound" the moment it
// exists — it is the target a master binds to, not itself a binding.
type Slave[F any] struct {
	kind    string
	handler F
}

// NewSlave constructs a slave port of the given kind wrapping handler.
func NewSlave[F any](kind string, handler F) *Slave[F] {
	return &Slave[F]{kind: kind, handler: handler}
}

// Kind returns the interface kind name.
func (s *Slave[F]) Kind() string { return s.kind }

// IsBound always reports true: a slave port's handler exists unconditionally
// once constructed.
func (s *Slave[F]) IsBound() bool { return true }

// Handler returns the registered handler function.
func (s *Slave[F]) Handler() F { return s.handler }

// Bind connects a master port to a slave port of the same interface kind.
// The fabric itself introduces no latency (spec §4.2) — callers insert
// delay via the scheduler.
func Bind[F any](master *Master[F], slave *Slave[F]) {
	master.Bind(slave.Handler())
}
