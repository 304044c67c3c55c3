package fabric

import "simcore/trace"

// WireHandler is the payload-shape for a wire<T> interface kind: a single
// typed value, synced with no acknowledgement (spec §6).
type WireHandler[T any] func(value T)

// WireMaster is a wire<T> master port.
type WireMaster[T any] struct {
	*Master[WireHandler[T]]
}

// NewWireMaster constructs an unbound wire<T> master port identified by
// site for diagnostics.
func NewWireMaster[T any](site string) *WireMaster[T] {
	return &WireMaster[T]{Master: NewMaster[WireHandler[T]]("wire", site)}
}

// Sync delivers value to the bound slave, or warns once and drops it if
// unbound.
func (w *WireMaster[T]) Sync(t trace.Tracer, value T) {
	h, ok := w.Handler()
	if !ok {
		w.WarnUnbound(t)
		return
	}
	h(value)
}

// NewWireSlave constructs a wire<T> slave port wrapping handler.
func NewWireSlave[T any](handler WireHandler[T]) *Slave[WireHandler[T]] {
	return NewSlave[WireHandler[T]]("wire", handler)
}
