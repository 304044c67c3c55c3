package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOwner string

func (f fakeOwner) Path() string { return string(f) }

// Invariant 1: events scheduled for earlier cycles always fire before later
// ones, regardless of enqueue order.
func TestRunUntilOrdersByTargetCycle(t *testing.T) {
	sched := New(nil)
	var fired []string

	late := NewEvent(fakeOwner("late"), func() { fired = append(fired, "late") })
	early := NewEvent(fakeOwner("early"), func() { fired = append(fired, "early") })

	require.NoError(t, sched.Enqueue(late, 10))
	require.NoError(t, sched.Enqueue(early, 1))

	require.NoError(t, sched.RunUntil(100))
	assert.Equal(t, []string{"early", "late"}, fired)
}

// Invariant 2 / scenario S6: ties at the same cycle fire in FIFO
// (enqueue) order.
func TestRunUntilBreaksTiesByEnqueueOrder(t *testing.T) {
	sched := New(nil)
	var fired []string

	a := NewEvent(fakeOwner("a"), func() { fired = append(fired, "a") })
	b := NewEvent(fakeOwner("b"), func() { fired = append(fired, "b") })
	c := NewEvent(fakeOwner("c"), func() { fired = append(fired, "c") })

	require.NoError(t, sched.Enqueue(a, 5))
	require.NoError(t, sched.Enqueue(b, 5))
	require.NoError(t, sched.Enqueue(c, 5))

	require.NoError(t, sched.RunUntil(100))
	assert.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestEnqueueRejectsNonPositiveDelay(t *testing.T) {
	sched := New(nil)
	e := NewEvent(fakeOwner("x"), func() {})

	err := sched.Enqueue(e, 0)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.False(t, e.IsEnqueued())
}

func TestEnqueueRejectsDoubleEnqueue(t *testing.T) {
	sched := New(nil)
	e := NewEvent(fakeOwner("x"), func() {})

	require.NoError(t, sched.Enqueue(e, 1))
	err := sched.Enqueue(e, 1)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestCancelIsIdempotentAndRemovesEvent(t *testing.T) {
	sched := New(nil)
	fired := false
	e := NewEvent(fakeOwner("x"), func() { fired = true })

	require.NoError(t, sched.Enqueue(e, 1))
	sched.Cancel(e)
	sched.Cancel(e) // no-op, must not panic

	require.NoError(t, sched.RunUntil(100))
	assert.False(t, fired)
	assert.False(t, e.IsEnqueued())
}

// RunUntil's limit is exclusive: an event scheduled to fire exactly at the
// limit cycle has not fired when RunUntil returns.
func TestRunUntilLimitIsExclusive(t *testing.T) {
	sched := New(nil)
	fired := false
	e := NewEvent(fakeOwner("x"), func() { fired = true })

	require.NoError(t, sched.Enqueue(e, 10))
	require.NoError(t, sched.RunUntil(10))
	assert.False(t, fired)
	assert.Equal(t, Cycle(0), sched.Now())

	require.NoError(t, sched.RunUntil(11))
	assert.True(t, fired)
	assert.Equal(t, Cycle(10), sched.Now())
}

// A handler is free to re-enqueue its own event (the idempotent check_state
// re-arm pattern, spec §5) — this must not deadlock or corrupt the heap.
func TestHandlerMayReenqueueItself(t *testing.T) {
	sched := New(nil)
	count := 0
	var e *Event
	e = NewEvent(fakeOwner("self"), func() {
		count++
		if count < 5 {
			_ = sched.Enqueue(e, 1)
		}
	})

	require.NoError(t, sched.Enqueue(e, 1))
	require.NoError(t, sched.RunUntil(100))
	assert.Equal(t, 5, count)
}

func TestStopHaltsRunUntilMidQueue(t *testing.T) {
	sched := New(nil)
	var fired []int
	for i := 1; i <= 3; i++ {
		i := i
		sched.Enqueue(NewEvent(fakeOwner("x"), func() {
			fired = append(fired, i)
			if i == 2 {
				sched.Stop()
			}
		}), Cycle(i))
	}

	require.NoError(t, sched.RunUntil(100))
	assert.Equal(t, []int{1, 2}, fired)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.observeFire(42) // must not panic

	m = NewMetrics(nil)
	sched := New(m)
	e := NewEvent(fakeOwner("x"), func() {})
	require.NoError(t, sched.Enqueue(e, 1))
	require.NoError(t, sched.RunUntil(10))
}
