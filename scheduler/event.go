package scheduler

// Cycle is an absolute simulated clock tick. It only ever increases.
type Cycle int64

// Handler is invoked when an Event fires. The handler runs to completion
// under the scheduler's single thread (spec §5) — it may enqueue further
// events (including re-enqueuing itself) but must not block.
type Handler func()

// Owner identifies the component that owns an Event, used only for
// diagnostics (spec §3: "each event is owned by exactly one component").
type Owner interface {
	Path() string
}

// Event is a scheduled future invocation of a Handler. Allocate one Event
// per handler and re-enqueue it repeatedly rather than allocating a fresh
// Event per firing — this mirrors the original model's persistent
// pending_word_event per DMA channel.
type Event struct {
	owner   Owner
	handler Handler

	enqueued bool
	target   Cycle
	seq      uint64
	index    int // heap.Interface bookkeeping, see eventHeap
}

// NewEvent allocates an event bound to owner, firing handler when it comes
// due.
func NewEvent(owner Owner, handler Handler) *Event {
	return &Event{owner: owner, handler: handler}
}

// IsEnqueued reports whether the event currently has a pending firing.
func (e *Event) IsEnqueued() bool { return e.enqueued }

// TargetCycle returns the cycle this event is scheduled to fire at. Only
// meaningful while IsEnqueued() is true.
func (e *Event) TargetCycle() Cycle { return e.target }
