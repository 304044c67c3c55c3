package fabric

import "simcore/trace"

// I2cHandler is the payload-shape for the i2c interface kind: two boolean
// wire levels (scl, sda), spec §6. The direction of data transfer is
// inferred by the receiver from SCL edges, not encoded in the call.
type I2cHandler func(scl, sda int)

// I2cMaster is an i2c master port, driven by the I²C controller.
type I2cMaster struct {
	*Master[I2cHandler]
}

// NewI2cMaster constructs an unbound i2c master port.
func NewI2cMaster(site string) *I2cMaster {
	return &I2cMaster{Master: NewMaster[I2cHandler]("i2c", site)}
}

// Sync drives (scl, sda) onto the bus, or warns once and drops if unbound.
func (m *I2cMaster) Sync(t trace.Tracer, scl, sda int) {
	h, ok := m.Handler()
	if !ok {
		m.WarnUnbound(t)
		return
	}
	h(scl, sda)
}

// NewI2cSlave constructs an i2c slave port wrapping handler.
func NewI2cSlave(handler I2cHandler) *Slave[I2cHandler] {
	return NewSlave[I2cHandler]("i2c", handler)
}
