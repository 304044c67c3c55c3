// Package platform implements elaboration: building the component tree,
// binding ports, and owning the Scheduler that drives the whole simulation
// (spec §4, package-mapping table). Grounded on the teacher's
// NewVirtualMachine/virtual_machine.go, which builds a fixed IOBus + device
// set and wires it together before running VCPUs; here the device set is
// arbitrary and elaboration-time, not a fixed x86 board.
package platform

import (
	"context"
	"fmt"
	"sync"

	"simcore/config"
	"simcore/fabric"
	"simcore/scheduler"
	"simcore/trace"
)

// Steppable is the contract a future instruction-stepping core would
// implement to register itself as a scheduler-driven component (spec §4.7).
// No production implementation ships in this module; original_source's
// models/cpu/iss/include/exec.hpp and lsu.hpp show the dropped half of the
// system this interface stands in for.
type Steppable interface {
	// Step executes until the core next yields, returning how many cycles
	// were consumed. A future LSU reports out-of-bounds stack accesses
	// through StackBoundsError rather than a bare fatal string.
	Step(ctx context.Context) (cyclesConsumed int, err error)
}

// StackBoundsError reports an SP-based memory access outside the window a
// future LSU considers valid stack (spec §7's "fatal" taxonomy entry for
// iss_lsu_check_stack_access, grounded on
// original_source/models/cpu/iss/include/lsu.hpp). No code in this module
// raises it yet; it exists so a future Steppable has a typed error to
// return instead of a bare fatal string.
type StackBoundsError struct {
	Address  uint64
	LowBound uint64
	HighBound uint64
}

func (e *StackBoundsError) Error() string {
	return fmt.Sprintf("platform: stack access at 0x%x outside bounds [0x%x, 0x%x)", e.Address, e.LowBound, e.HighBound)
}

// starter is implemented by components that must run once at elaboration's
// end, after every port has been bound (spec §4.6, the Switch component's
// start()).
type starter interface {
	Start()
}

type requiredPort struct {
	component *fabric.Component
	portName  string
}

// System owns the component tree root, the Scheduler driving it, and the
// bookkeeping elaboration needs: which master ports are required to be
// bound, and which components must run their one-shot Start().
type System struct {
	mu sync.Mutex

	sched *scheduler.Scheduler
	root  *fabric.Component

	required []requiredPort
	starters []starter
}

// New builds an empty System named name, scheduled by a fresh Scheduler.
// metrics may be nil (spec §2.2: the scheduler's prometheus instrumentation
// is optional). tracer may be nil, in which case trace.NopTracer() is used.
func New(name string, tracer trace.Tracer, metrics *scheduler.Metrics) *System {
	if tracer == nil {
		tracer = trace.NopTracer()
	}
	return &System{
		sched: scheduler.New(metrics),
		root:  fabric.NewComponent(name, nil, config.New(nil), tracer),
	}
}

// Scheduler returns the System's Scheduler, so peripheral constructors can
// enqueue events against it.
func (s *System) Scheduler() *scheduler.Scheduler { return s.sched }

// Root returns the root Component every other component is built under.
func (s *System) Root() *fabric.Component { return s.root }

// RequireBound records that component's named master port must be bound by
// the time Elaborate runs, matching the teacher's pattern of registering
// every device with the IOBus before NewVirtualMachine returns.
func (s *System) RequireBound(component *fabric.Component, portName string) {
	s.required = append(s.required, requiredPort{component, portName})
}

// RegisterStarter records a component whose Start() must run once
// elaboration finishes binding every port (spec §4.6). Any value
// implementing Start() — e.g. *toggle.Periph — qualifies; callers pass it
// through this method rather than needing an exported interface type.
func (s *System) RegisterStarter(component interface{ Start() }) {
	s.starters = append(s.starters, component)
}

// Elaborate validates every port registered through RequireBound is bound,
// then runs every registered starter's Start(), in registration order. It
// returns the first *fabric.ElaborationError encountered and aborts before
// running any starters, matching spec §7: configuration/binding failures
// must fail fast with a diagnostic, never silently proceed to simulate a
// half-wired system.
func (s *System) Elaborate() error {
	for _, rp := range s.required {
		if err := rp.component.RequireBound(rp.portName); err != nil {
			return err
		}
	}
	for _, st := range s.starters {
		st.Start()
	}
	return nil
}

// RunUntil advances the Scheduler to limit. The mutex guards against
// concurrent external callers driving the same System — the simulation
// itself remains single-threaded cooperative (spec §5) — mirroring the
// teacher's VirtualMachine.stopChan external-stop boundary.
func (s *System) RunUntil(limit scheduler.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.RunUntil(limit)
}

// Stop sets the Scheduler's stop flag while holding the System's mutex.
// Scheduler.RunUntil clears that flag when it starts, so a Stop made between
// runs does not cut short a later RunUntil; a Stop from another goroutine
// waits for a RunUntil in progress to return, since both take the mutex.
func (s *System) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.Stop()
}
