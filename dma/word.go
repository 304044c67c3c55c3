// Package dma implements the per-peripheral TX/RX buffer descriptor
// pipelines (spec §4.3), grounded on the original model's Udma_tx_channel /
// Udma_rx_channel (original_source/models/pulp/udma/udma_i2c_v2.cpp and
// udma_uart_v1.cpp) and on the teacher's registration/dispatch idiom
// (core_engine/devices/iobus.go) for the request/response shape.
package dma

import "simcore/fabric"

// wordFromBytes reads up to 4 bytes of data little-endian into a pending
// word, zero-padding short buffers — the Go equivalent of the original's
// `*(uint32_t *)req->get_data()`. Only the first 4 bytes are read; nothing
// caps ActualSize, and every descriptor the peripherals in this module push
// (NewByteReq) is a single byte.
func wordFromBytes(data []byte) uint32 {
	var word uint32
	for i := 0; i < len(data) && i < 4; i++ {
		word |= uint32(data[i]) << (8 * uint(i))
	}
	return word
}

// NewByteReq is a convenience constructor for a single-byte DMA descriptor,
// the shape both the I²C command stream and the UART TX channel consume.
func NewByteReq(offset uint64, value byte) *fabric.IoReq {
	return fabric.NewIoReq(offset, []byte{value}, true)
}
