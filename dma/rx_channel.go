package dma

import "simcore/fabric"

// RxChannel is an RX DMA channel: incoming bytes are appended to the
// currently active receive descriptor, completing it when filled (spec
// §4.3). Both the original I²C and UART models report is_busy() as
// unconditionally false for their RX channels (original_source's
// I2c_rx_channel::is_busy / Uart_rx_channel::is_busy) — preserved here
// literally rather than "fixed" (see DESIGN.md, dma package).
type RxChannel struct {
	ready  []*fabric.IoReq
	active *fabric.IoReq
	filled int

	onReqEnd func(req *fabric.IoReq)
}

// NewRxChannel builds an empty RX channel. onReqEnd may be nil.
func NewRxChannel(onReqEnd func(req *fabric.IoReq)) *RxChannel {
	return &RxChannel{onReqEnd: onReqEnd}
}

// PushReadyReq appends a receive descriptor to drain incoming bytes into.
func (c *RxChannel) PushReadyReq(req *fabric.IoReq) {
	c.ready = append(c.ready, req)
	c.activateIfIdle()
}

// IsBusy always reports false, matching the original model.
func (c *RxChannel) IsBusy() bool { return false }

// Reset drops the active descriptor and FIFO.
func (c *RxChannel) Reset() {
	c.ready = nil
	c.active = nil
	c.filled = 0
}

// PushData appends bytes to the active receive descriptor, completing it
// (firing onReqEnd and activating the next one) once it is filled.
func (c *RxChannel) PushData(data []byte) {
	for _, b := range data {
		c.activateIfIdle()
		if c.active == nil {
			// No descriptor to receive into: the byte is dropped, the way
			// a real DMA unit would drop data with nowhere to land.
			continue
		}
		c.active.Data[c.filled] = b
		c.filled++
		if c.filled >= c.active.ActualSize {
			req := c.active
			c.active = nil
			c.filled = 0
			if c.onReqEnd != nil {
				c.onReqEnd(req)
			}
		}
	}
}

func (c *RxChannel) activateIfIdle() {
	if c.active != nil || len(c.ready) == 0 {
		return
	}
	c.active = c.ready[0]
	c.ready = c.ready[1:]
	c.filled = 0
}
