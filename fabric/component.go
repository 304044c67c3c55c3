// Package fabric implements the component/interface binding layer: the
// hierarchical namespace of components, their named master/slave ports, and
// the typed interface kinds synced between them (spec §4.2). It generalizes
// the teacher's IOBus port-registration/dispatch idiom
// (core_engine/devices/iobus.go) from a single untyped PioDevice interface
// into per-interface-kind tagged dispatch, per DESIGN NOTES §9: no
// function-pointer casts, no void* context — binding is type-checked at
// compile time through Go generics (see Master/Slave in port.go).
package fabric

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"simcore/config"
	"simcore/trace"
)

// ElaborationError reports a configuration or binding failure discovered
// while building the component tree. Per spec §7 this must fail fast and
// abort with a diagnostic — it is never meant to be silently swallowed.
type ElaborationError struct {
	Component string
	Cause     error
}

func (e *ElaborationError) Error() string {
	return "fabric: elaboration failed for " + e.Component + ": " + e.Cause.Error()
}

func (e *ElaborationError) Unwrap() error { return e.Cause }

// PortRef is the introspectable handle every Master/Slave port exposes,
// used by Component to enumerate and validate bindings without needing to
// know the concrete payload type of each interface kind.
type PortRef interface {
	Kind() string
	IsBound() bool
}

// Component is a simulated block: a name, an optional parent, a child set,
// an immutable configuration mapping, and named master/slave ports (spec
// §3). Peripheral models embed Component as their base, the way the
// teacher's devices shared IODirectionIn/Out and InterruptRaiser
// conventions without a common base struct — here we do give them one,
// since every component needs the same identity/config/tracer/port-registry
// plumbing.
type Component struct {
	id     uuid.UUID
	name   string
	parent *Component

	children []*Component
	cfg      config.Map
	tracer   trace.Tracer

	masterPorts map[string]PortRef
	slavePorts  map[string]PortRef
}

// NewComponent constructs a Component identified by name, configured by cfg,
// tracing through tracer (pass trace.NopTracer() if none is wired).
func NewComponent(name string, parent *Component, cfg config.Map, tracer trace.Tracer) *Component {
	c := &Component{
		id:          uuid.New(),
		name:        name,
		parent:      parent,
		cfg:         cfg,
		tracer:      tracer,
		masterPorts: make(map[string]PortRef),
		slavePorts:  make(map[string]PortRef),
	}
	if parent != nil {
		parent.children = append(parent.children, c)
	}
	return c
}

// ID returns the component's correlation identity, a random UUID assigned at
// construction. Trace lines written through Tracer() do not carry it.
func (c *Component) ID() uuid.UUID { return c.id }

// Name returns the component's own (non-hierarchical) name.
func (c *Component) Name() string { return c.name }

// Path returns the dotted hierarchical path from the root to this
// component, e.g. "soc.i2c0". Satisfies scheduler.Owner.
func (c *Component) Path() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.Path() + "." + c.name
}

// Config returns the component's immutable configuration mapping.
func (c *Component) Config() config.Map { return c.cfg }

// Tracer returns the component's tracing capability.
func (c *Component) Tracer() trace.Tracer { return c.tracer }

// Children returns the components built under this one.
func (c *Component) Children() []*Component { return c.children }

// RegisterMaster records a master port under name for introspection
// (RequireBound below). Call once per port during build().
func (c *Component) RegisterMaster(name string, port PortRef) {
	c.masterPorts[name] = port
}

// RegisterSlave records a slave port under name for introspection.
func (c *Component) RegisterSlave(name string, port PortRef) {
	c.slavePorts[name] = port
}

// RequireBound returns an *ElaborationError if the named master port was
// never registered or never bound to a peer — used at the end of
// elaboration to fail fast on a missing required binding (spec §7:
// "Configuration error ... malformed binding — fail fast at elaboration").
func (c *Component) RequireBound(portName string) error {
	port, ok := c.masterPorts[portName]
	if !ok {
		return &ElaborationError{Component: c.Path(), Cause: errors.Errorf("master port %q was never declared", portName)}
	}
	if !port.IsBound() {
		return &ElaborationError{Component: c.Path(), Cause: errors.Errorf("required master port %q (%s) is not bound", portName, port.Kind())}
	}
	return nil
}
