package fabric

import "simcore/trace"

// UartHandler is the payload-shape for the uart interface kind: a single
// line-level bit (spec §6). Framing is implicit in timing — bits are spaced
// clkdiv cycles apart by the sender.
type UartHandler func(bit int)

// UartMaster is a uart master port.
type UartMaster struct {
	*Master[UartHandler]
}

// NewUartMaster constructs an unbound uart master port.
func NewUartMaster(site string) *UartMaster {
	return &UartMaster{Master: NewMaster[UartHandler]("uart", site)}
}

// Sync drives bit onto the line, or warns once and drops if unbound.
func (m *UartMaster) Sync(t trace.Tracer, bit int) {
	h, ok := m.Handler()
	if !ok {
		m.WarnUnbound(t)
		return
	}
	h(bit)
}

// NewUartSlave constructs a uart slave port wrapping handler.
func NewUartSlave(handler UartHandler) *Slave[UartHandler] {
	return NewSlave[UartHandler]("uart", handler)
}
