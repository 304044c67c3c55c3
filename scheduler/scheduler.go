// Package scheduler implements the cycle-counted event queue that drives
// cooperative wake-ups of peripheral models (spec §4.1). It is grounded on
// the due-time min-heap pattern the retrieval pack itself uses for polling
// schedules (jangala-dev-devicecode-go's services/hal/internal/core.Poller),
// adapted from wall-clock deadlines to simulated cycles.
package scheduler

import (
	"container/heap"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// FatalError is returned by Enqueue for conditions the spec requires to
// abort the simulation rather than silently continue (§5, §7): a delay
// below 1 or re-enqueuing an already-enqueued event.
type FatalError struct {
	Op      string
	Owner   string
	Message string
}

func (e *FatalError) Error() string {
	return "scheduler: fatal: " + e.Op + " on " + e.Owner + ": " + e.Message
}

// eventHeap is a container/heap.Interface over *Event, ordered by
// (target cycle, sequence number) so that events scheduled for the same
// cycle fire in FIFO insertion order (spec §4.1 ordering requirement).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].target != h[j].target {
		return h[i].target < h[j].target
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Metrics are optional prometheus instruments. A nil *Metrics is safe to
// use — every method is a no-op guard, so callers that don't care about
// observability never have to special-case it.
type Metrics struct {
	eventsFired prometheus.Counter
	cycleGauge  prometheus.Gauge
}

// NewMetrics registers simcore_events_fired_total and simcore_cycle with reg.
// Pass nil to get an enabled-but-unregistered Metrics usable only by this
// package (registration is skipped), or construct the zero value via
// &Metrics{} to fully disable collection.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simcore_events_fired_total",
			Help: "Total number of scheduler events fired.",
		}),
		cycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simcore_cycle",
			Help: "Current scheduler cycle counter.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.eventsFired, m.cycleGauge)
	}
	return m
}

func (m *Metrics) observeFire(now Cycle) {
	if m == nil {
		return
	}
	if m.eventsFired != nil {
		m.eventsFired.Inc()
	}
	if m.cycleGauge != nil {
		m.cycleGauge.Set(float64(now))
	}
}

// Scheduler is the global simulated clock: a monotonically advancing cycle
// counter plus a priority queue of pending events keyed by absolute cycle.
type Scheduler struct {
	now     Cycle
	nextSeq uint64
	pending eventHeap
	stopped bool
	metrics *Metrics
}

// New creates a Scheduler starting at cycle 0. metrics may be nil.
func New(metrics *Metrics) *Scheduler {
	return &Scheduler{metrics: metrics}
}

// Now reads the current absolute cycle. It never decreases.
func (s *Scheduler) Now() Cycle { return s.now }

// Enqueue schedules event to fire at Now()+delay. delay must be >= 1 and
// event must not already be enqueued; violating either is a programming
// error reported as a *FatalError rather than silently dropped (spec §4.1).
func (s *Scheduler) Enqueue(event *Event, delay Cycle) error {
	if delay < 1 {
		return &FatalError{Op: "enqueue", Owner: ownerPath(event), Message: "delay must be >= 1"}
	}
	if event.enqueued {
		return &FatalError{Op: "enqueue", Owner: ownerPath(event), Message: "event is already enqueued"}
	}
	event.target = s.now + delay
	event.seq = s.nextSeq
	s.nextSeq++
	event.enqueued = true
	heap.Push(&s.pending, event)
	return nil
}

// Cancel removes event from the pending queue if present. It is a no-op if
// the event is not currently enqueued.
func (s *Scheduler) Cancel(event *Event) {
	if !event.enqueued {
		return
	}
	heap.Remove(&s.pending, event.index)
	event.enqueued = false
}

// Stop requests RunUntil to return after the event handler currently
// executing returns. Intended to be called from inside a Handler.
func (s *Scheduler) Stop() { s.stopped = true }

// RunUntil repeatedly pops the earliest event, advances Now to its target
// cycle, clears its enqueued flag, and invokes its handler. It terminates
// when the queue is empty, a handler calls Stop, or the earliest pending
// event's target cycle is >= limit (the limit is exclusive, and Now is not
// advanced to it).
func (s *Scheduler) RunUntil(limit Cycle) error {
	s.stopped = false
	for {
		if s.stopped {
			return nil
		}
		if len(s.pending) == 0 {
			return nil
		}
		next := s.pending[0]
		if next.target >= limit {
			return nil
		}
		if next.target < s.now {
			return errors.Errorf("scheduler: invariant violated: popped event target %d < now %d", next.target, s.now)
		}
		heap.Pop(&s.pending)
		next.enqueued = false
		s.now = next.target
		s.metrics.observeFire(s.now)
		next.handler()
	}
}

func ownerPath(e *Event) string {
	if e.owner == nil {
		return "<unowned>"
	}
	return e.owner.Path()
}
