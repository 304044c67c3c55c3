// Package i2c implements the I²C v2 master peripheral (spec §4.4): a
// command-stream engine driven by its TX DMA channel, clock-divided bit
// generation and sampling on a two-wire i2c interface. Grounded on
// original_source/models/pulp/udma/udma_i2c_v2.cpp, transcribed onto
// simcore's scheduler/fabric/dma packages.
package i2c

import (
	"fmt"

	"simcore/config"
	"simcore/dma"
	"simcore/fabric"
	"simcore/scheduler"
	"simcore/trace"
)

// Command is an I²C command-stream byte (spec §4.4, §6). The original
// archi header assigning numeric codes is not part of the retrieval pack;
// these values are this implementation's own assignment (documented in
// DESIGN.md) rather than a literal transcription of an unseen header.
type Command byte

const (
	CmdStart   Command = 0x00
	CmdStop    Command = 0x01
	CmdRdAck   Command = 0x02
	CmdRdNack  Command = 0x03
	CmdWr      Command = 0x04
	CmdWait    Command = 0x05
	CmdRpt     Command = 0x06
	CmdCfg     Command = 0x07
	CmdWaitEv  Command = 0x08
)

func (c Command) String() string {
	switch c {
	case CmdStart:
		return "START"
	case CmdStop:
		return "STOP"
	case CmdRdAck:
		return "RD_ACK"
	case CmdRdNack:
		return "RD_NACK"
	case CmdWr:
		return "WR"
	case CmdWait:
		return "WAIT"
	case CmdRpt:
		return "RPT"
	case CmdCfg:
		return "CFG"
	case CmdWaitEv:
		return "WAIT_EV"
	default:
		return "UNKNOWN"
	}
}

// State is one of the I²C engine's command-stream states (spec §4.4).
type State int

const (
	StateWaitCmd State = iota
	StateWaitRpt
	StateWaitRptCmd
	StateWaitCfg
	StateStart0
	StateStop0
	StateStop1
	StateWr0
	StateWr1
)

// Periph is an I²C master peripheral instance (spec's I2cPeriph).
type Periph struct {
	*fabric.Component

	sched *scheduler.Scheduler
	tx    *dma.TxChannel
	rx    *dma.RxChannel
	itf   *fabric.I2cMaster
	event *scheduler.Event

	state         State
	clkdiv        int
	repeatCount   int
	repeatCommand Command

	pendingValue     int
	pendingValueBits int

	waitingRx    bool
	pendingRxBit int

	prevScl int
	prevSda int

	nextBitCycle scheduler.Cycle
}

// New builds an I²C peripheral named name under parent, scheduled by sched.
// cfg's "itf_id" key (default 0) suffixes the i2c<N> port name (spec §6).
func New(sched *scheduler.Scheduler, parent *fabric.Component, name string, cfg config.Map, tracer trace.Tracer) *Periph {
	comp := fabric.NewComponent(name, parent, cfg, tracer)
	itfID := cfg.IntOr("itf_id", 0)
	portName := fmt.Sprintf("i2c%d", itfID)

	p := &Periph{Component: comp}
	p.itf = fabric.NewI2cMaster(comp.Path() + "." + portName)
	comp.RegisterMaster(portName, p.itf)
	comp.RegisterSlave(portName+"_rx", fabric.NewI2cSlave(p.rxSync))

	p.sched = sched
	p.tx = dma.NewTxChannel(nil, p.checkState)
	p.rx = dma.NewRxChannel(nil)
	p.event = scheduler.NewEvent(comp, p.handlePendingWord)
	p.Reset()
	return p
}

// Itf returns the i2c master port this peripheral drives the bus from.
func (p *Periph) Itf() *fabric.I2cMaster { return p.itf }

// TxChannel returns the TX DMA channel the command stream is written to.
func (p *Periph) TxChannel() *dma.TxChannel { return p.tx }

// RxChannel returns the RX DMA channel sampled bytes are pushed to.
func (p *Periph) RxChannel() *dma.RxChannel { return p.rx }

// PushCommand appends one command-stream byte to the TX channel.
func (p *Periph) PushCommand(offset uint64, b byte) {
	p.tx.PushReadyReq(dma.NewByteReq(offset, b))
}

// Reset returns the peripheral to its deterministic power-on state (spec
// §5): no pending event, no pending requests, WAIT_CMD.
func (p *Periph) Reset() {
	if p.event.IsEnqueued() {
		p.sched.Cancel(p.event)
	}
	p.tx.Reset()
	p.rx.Reset()
	p.state = StateWaitCmd
	p.clkdiv = 0
	p.repeatCount = 0
	p.repeatCommand = 0
	p.pendingValue = 0
	p.pendingValueBits = 0
	p.waitingRx = false
	p.pendingRxBit = 0
	p.prevScl = 0
	p.prevSda = 0
	p.nextBitCycle = -1
}

// rxSync is bound as this peripheral's slave port: the I²C slave on the bus
// drives (scl, sda) back at us; only sda is meaningful here (spec §4.4:
// "the most recent value received on the incoming i2c sync" is latched into
// pending_rx_bit).
func (p *Periph) rxSync(_ int, sda int) {
	p.pendingRxBit = sda
	p.Tracer().Msg("received bit (value: %d)", sda)
}

// RxSync feeds one incoming (scl, sda) observation to this peripheral's RX
// path. A real system wires this through the component fabric by binding
// another component's i2c master port to this peripheral's "<port>_rx"
// slave port at elaboration time; exported directly so tests can drive the
// RX path without standing up a second fabric.Component.
func (p *Periph) RxSync(scl, sda int) {
	p.rxSync(scl, sda)
}

// handlePendingWord is the clock-event handler firing every clkdiv cycles,
// transcribed from I2c_tx_channel::handle_pending_word.
func (p *Periph) handlePendingWord() {
	if p.waitingRx {
		p.sampleRxBit()
	} else {
		p.stepCommandStream()
	}
	// A byte consumed above may have pulled the next TX request, whose
	// onReady callback re-armed the event before this firing updated
	// nextBitCycle; re-arm from the updated nextBitCycle instead.
	if p.event.IsEnqueued() {
		p.sched.Cancel(p.event)
	}
	p.checkState()
}

func (p *Periph) sampleRxBit() {
	p.prevScl ^= 1
	p.itf.Sync(p.Tracer(), p.prevScl, 0)

	if p.prevScl == 0 {
		return
	}

	bit := p.pendingRxBit
	p.pendingValue = (p.pendingValue << 1) | bit
	p.pendingValueBits--
	p.nextBitCycle = p.sched.Now() + scheduler.Cycle(p.clkdiv)

	p.Tracer().Msg("sampled bit (value: 0x%x, pending_value: 0x%x, bits left: %d)", bit, p.pendingValue&0xff, p.pendingValueBits)

	if p.pendingValueBits == 0 {
		p.Tracer().Msg("sampled byte, pushing to channel (value: 0x%x)", p.pendingValue&0xff)
		p.rx.PushData([]byte{byte(p.pendingValue & 0xff)})
		p.waitingRx = false
	}
}

func (p *Periph) stepCommandStream() {
	pendingByte := p.tx.PeekByte()
	p.Tracer().Msg("handling byte (value: 0x%x)", pendingByte)

	bit := -1
	scl := 0

	switch p.state {
	case StateWaitCmd, StateWaitRptCmd:
		command := Command(pendingByte)
		if p.state == StateWaitCmd && p.repeatCount > 0 {
			p.repeatCount--
			command = p.repeatCommand
		} else {
			p.consumeByte()
			if p.state == StateWaitRptCmd {
				p.repeatCommand = command
				p.repeatCount--
			}
		}

		p.Tracer().Msg("received command (value: 0x%x, name: %s)", byte(command), command)

		switch command {
		case CmdCfg:
			p.state = StateWaitCfg
			p.pendingValueBits = 0
		case CmdStart:
			p.state = StateStart0
			bit, scl = 1, 1
		case CmdStop:
			p.state = StateStop0
			bit, scl = 0, 0
		case CmdWr:
			p.state = StateWr0
			p.pendingValueBits = 8
		case CmdRdNack, CmdRdAck:
			p.state = StateWaitCmd
			p.waitingRx = true
			p.pendingValueBits = 8
		case CmdRpt:
			p.state = StateWaitRpt
		default:
			p.Tracer().Warning("unknown command (value: 0x%x)", byte(command))
		}

	case StateWaitCfg:
		if p.pendingValueBits == 0 {
			p.pendingValue = int(pendingByte) << 8
		} else {
			p.clkdiv = p.pendingValue | int(pendingByte)
			p.state = StateWaitCmd
			p.Tracer().Msg("configuring clock divider (value: %d)", p.clkdiv)
		}
		p.pendingValueBits += 8
		p.consumeByte()

	case StateWr0:
		scl = 0
		if p.pendingValueBits == 8 {
			p.pendingValue = int(pendingByte)
		}
		bit = (p.pendingValue >> 7) & 1
		p.prevSda = bit
		p.pendingValue <<= 1
		p.pendingValueBits--
		p.state = StateWr1

	case StateWr1:
		scl = 1
		bit = p.prevSda
		if p.pendingValueBits == 0 {
			p.state = StateWaitCmd
			p.consumeByte()
		} else {
			p.state = StateWr0
		}

	case StateWaitRpt:
		p.repeatCount = int(pendingByte)
		p.Tracer().Msg("configuring repeat mode (iterations: %d)", p.repeatCount)
		p.consumeByte()
		p.state = StateWaitRptCmd

	case StateStop0:
		p.state = StateStop1
		bit, scl = 0, 1

	case StateStart0:
		p.state = StateWaitCmd
		bit, scl = 0, 1

	case StateStop1:
		p.state = StateWaitCmd
		bit, scl = 1, 1
	}

	if bit != -1 {
		if !p.itf.IsBound() {
			p.itf.WarnUnbound(p.Tracer())
		} else {
			p.nextBitCycle = p.sched.Now() + scheduler.Cycle(p.clkdiv)
			p.Tracer().Msg("sending bit (scl: %d, sda: %d)", scl, bit)
			p.itf.Sync(p.Tracer(), scl, bit)
			p.prevScl = scl
		}
	}
}

// consumeByte advances the TX channel by one byte. Every single-byte
// command/operand consumption in WAIT_CMD/WAIT_RPT/WAIT_CFG, and the final
// WR1 firing that empties pending_value_bits, route through this one call
// so the word-advance point is asserted in a single place (SPEC_FULL.md
// Open Question decision #2) rather than duplicated per branch.
func (p *Periph) consumeByte() {
	p.tx.Advance(8)
}

// checkState is the idempotent re-arm: it enqueues the next firing only if
// work remains and no firing is currently pending (spec §5).
func (p *Periph) checkState() {
	workRemains := p.tx.PendingBits != 0 || p.state != StateWaitCmd || p.waitingRx
	if !workRemains || p.event.IsEnqueued() {
		return
	}

	latency := scheduler.Cycle(1)
	now := p.sched.Now()
	if p.nextBitCycle > now {
		latency = p.nextBitCycle - now
	}
	if err := p.sched.Enqueue(p.event, latency); err != nil {
		p.Tracer().Warning("failed to enqueue pending-word event: %v", err)
	}
}
