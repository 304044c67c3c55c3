// Package trace provides the Tracer capability every component is handed at
// build time, replacing the free-standing trace.msg/trace.warning side
// effects of the original model with a structured, per-component sink.
package trace

import (
	"sync"

	"go.uber.org/zap"
)

// Tracer is the capability a component uses to report protocol-level detail
// and warnings. It never returns an error: a trace sink going down is not a
// simulation failure.
type Tracer interface {
	// Msg logs a debug-level protocol trace (gvsoc's trace.msg).
	Msg(format string, args ...any)
	// Warning logs a recoverable anomaly (gvsoc's trace.warning): unbound
	// port sync, unknown command byte, and similar non-fatal conditions.
	Warning(format string, args ...any)
	// Named returns a child tracer scoped to a sub-path, mirroring
	// top->traces.new_trace(itf_name, &trace, ...).
	Named(name string) Tracer
}

type zapTracer struct {
	log *zap.SugaredLogger
}

// NewZapTracer builds a Tracer backed by a zap logger, rooted at componentPath.
func NewZapTracer(base *zap.Logger, componentPath string) Tracer {
	return &zapTracer{log: base.Sugar().Named(componentPath)}
}

func (t *zapTracer) Msg(format string, args ...any) {
	t.log.Debugf(format, args...)
}

func (t *zapTracer) Warning(format string, args ...any) {
	t.log.Warnf(format, args...)
}

func (t *zapTracer) Named(name string) Tracer {
	return &zapTracer{log: t.log.Named(name)}
}

// NopTracer is a Tracer that discards everything, useful for tests and for
// components built without a logging pipeline wired in.
func NopTracer() Tracer { return nopTracer{} }

type nopTracer struct{}

func (nopTracer) Msg(string, ...any)     {}
func (nopTracer) Warning(string, ...any) {}
func (nopTracer) Named(string) Tracer    { return nopTracer{} }

// OnceWarner gates a warning to fire only once per call site, matching the
// "unbound sends warn once per site and are dropped" requirement (spec §4.4)
// without requiring every peripheral to hand-roll the bookkeeping.
type OnceWarner struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewOnceWarner returns a helper that tracks which (site) keys have already
// warned.
func NewOnceWarner() *OnceWarner {
	return &OnceWarner{seen: make(map[string]struct{})}
}

// WarnOnce logs through t only the first time site is seen.
func (o *OnceWarner) WarnOnce(t Tracer, site, format string, args ...any) {
	o.mu.Lock()
	_, already := o.seen[site]
	if !already {
		o.seen[site] = struct{}{}
	}
	o.mu.Unlock()
	if !already {
		t.Warning(format, args...)
	}
}
