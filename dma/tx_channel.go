package dma

import "simcore/fabric"

// TxChannel is a TX DMA channel: a FIFO of ready requests drained bit-by-bit
// by the owning peripheral (spec §4.3). The peripheral reads PendingWord
// directly and calls Advance as it consumes bits; the channel only owns the
// FIFO bookkeeping and request-completion notification.
type TxChannel struct {
	ready      []*fabric.IoReq
	pendingReq *fabric.IoReq

	// PendingWord is the 32-bit unit currently being consumed bit-by-bit.
	// PendingBits is its significant bit count; PendingBits == 0 means the
	// channel holds no active word (spec §3 invariant).
	PendingWord uint32
	PendingBits int

	// onReqEnd notifies the upstream DMA/interrupt fabric that a request
	// finished draining (handle_ready_req_end in the original model).
	onReqEnd func(req *fabric.IoReq)
	// onReady fires whenever a new pending word becomes available, so the
	// owning peripheral can re-arm its own state machine (its check_state).
	onReady func()
}

// NewTxChannel builds an empty TX channel. onReqEnd and onReady may be nil.
func NewTxChannel(onReqEnd func(req *fabric.IoReq), onReady func()) *TxChannel {
	return &TxChannel{onReqEnd: onReqEnd, onReady: onReady}
}

// PushReadyReq appends req to the ready FIFO. If the channel was idle,
// draining starts immediately (spec §4.3).
func (c *TxChannel) PushReadyReq(req *fabric.IoReq) {
	c.ready = append(c.ready, req)
	c.pullIfIdle()
}

// IsBusy reports whether a word is being processed or the FIFO is
// non-empty (spec invariant 8).
func (c *TxChannel) IsBusy() bool {
	return c.PendingBits != 0 || len(c.ready) != 0
}

// Reset drops the pending request, clears the FIFO, and clears PendingBits.
func (c *TxChannel) Reset() {
	c.ready = nil
	c.pendingReq = nil
	c.PendingWord = 0
	c.PendingBits = 0
}

// PeekByte returns the low byte of PendingWord without advancing it —
// the original model's `pending_word & 0xff`, read by every branch of the
// I²C/UART handlers regardless of which state they're in.
func (c *TxChannel) PeekByte() byte {
	return byte(c.PendingWord & 0xff)
}

// Advance shifts PendingWord right by nBits and decrements PendingBits by
// the same amount. When PendingBits reaches zero, the current request
// completes (onReqEnd fires) and the next ready request, if any, is pulled
// in (onReady fires once it is).
func (c *TxChannel) Advance(nBits int) {
	c.PendingWord >>= uint(nBits)
	c.PendingBits -= nBits
	if c.PendingBits == 0 {
		c.completeAndPull()
	}
}

func (c *TxChannel) completeAndPull() {
	req := c.pendingReq
	c.pendingReq = nil
	if req != nil && c.onReqEnd != nil {
		c.onReqEnd(req)
	}
	c.pullIfIdle()
}

func (c *TxChannel) pullIfIdle() {
	if c.PendingBits != 0 || len(c.ready) == 0 {
		return
	}
	req := c.ready[0]
	c.ready = c.ready[1:]
	c.pendingReq = req
	c.PendingWord = wordFromBytes(req.Data)
	c.PendingBits = req.ActualSize * 8
	if c.onReady != nil {
		c.onReady()
	}
}
