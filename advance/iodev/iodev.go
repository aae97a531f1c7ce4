package iodev

import (
	"encoding/binary"
	"log/slog"

	"github.com/valerio/go-advance/advance/addr"
	"github.com/valerio/go-advance/advance/dma"
	"github.com/valerio/go-advance/advance/gpu"
	"github.com/valerio/go-advance/advance/interrupt"
	"github.com/valerio/go-advance/advance/keypad"
	"github.com/valerio/go-advance/advance/timer"
)

// HaltState is the power mode set through HALTCNT.
type HaltState int

const (
	Running HaltState = iota
	Halted
	Stopped
)

func (h HaltState) String() string {
	switch h {
	case Running:
		return "Running"
	case Halted:
		return "Halted"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Devices aggregates every memory mapped IO unit. It lives next to the system
// bus rather than inside it, so units that need the bus receive it explicitly.
type Devices struct {
	Intc   *interrupt.Controller
	Timers *timer.Bank
	DMA    *dma.Controller
	GPU    *gpu.GPU
	Keypad *keypad.Keypad

	HaltCnt HaltState
	PostFlg uint8
	WaitCnt uint16

	// registers with no behaviour behind them (backgrounds, windows, sound...)
	// keep their written value so software can read it back
	storage [addr.IOSize]byte
}

// New returns the IO units in their power-on state.
func New() *Devices {
	return &Devices{
		Intc:   interrupt.New(),
		Timers: timer.New(),
		DMA:    dma.New(),
		GPU:    gpu.New(),
		Keypad: keypad.New(),
	}
}

// Read16 reads the half-word register at offset from the IO base.
func (d *Devices) Read16(offset uint32) uint16 {
	offset &^= 1

	switch {
	case offset < 0x8:
		return d.GPU.Read16(offset)
	case offset >= 0xB0 && offset < 0xE0:
		return d.DMA.Read16(offset)
	case offset >= 0x100 && offset < 0x110:
		return d.Timers.Read16(offset)
	case offset == 0x130 || offset == 0x132:
		return d.Keypad.Read16(offset)
	case offset == 0x200 || offset == 0x202 || offset == 0x208:
		return d.Intc.Read16(offset)
	case offset == 0x204:
		return d.WaitCnt
	case offset == 0x300:
		return uint16(d.PostFlg)
	case offset < addr.IOSize:
		return binary.LittleEndian.Uint16(d.storage[offset:])
	default:
		slog.Debug("Read from unmapped IO register", "offset", offset)
		return 0
	}
}

// Write16 writes the half-word register at offset from the IO base.
func (d *Devices) Write16(offset uint32, value uint16) {
	offset &^= 1

	switch {
	case offset < 0x8:
		d.GPU.Write16(offset, value)
	case offset >= 0xB0 && offset < 0xE0:
		d.DMA.Write16(offset, value)
	case offset >= 0x100 && offset < 0x110:
		d.Timers.Write16(offset, value)
	case offset == 0x130 || offset == 0x132:
		d.Keypad.Write16(offset, value)
	case offset == 0x200 || offset == 0x202 || offset == 0x208:
		d.Intc.Write16(offset, value)
	case offset == 0x204:
		d.WaitCnt = value
	case offset == 0x300:
		d.PostFlg = uint8(value)
		d.writeHaltCnt(uint8(value >> 8))
	case offset < addr.IOSize:
		binary.LittleEndian.PutUint16(d.storage[offset:], value)
	default:
		slog.Debug("Write to unmapped IO register", "offset", offset, "value", value)
	}
}

// Read8 reads a single byte of a register.
func (d *Devices) Read8(offset uint32) uint8 {
	return uint8(d.Read16(offset) >> ((offset & 1) * 8))
}

// Write8 writes a single byte of a register, leaving the other byte untouched.
func (d *Devices) Write8(offset uint32, value uint8) {
	shift := (offset & 1) * 8
	aligned := offset &^ 1

	switch aligned {
	case 0x202:
		// acknowledge only the bits of this byte
		d.Intc.Write16(aligned, uint16(value)<<shift)
		return
	case 0x300:
		if offset == addr.HALTCNT-addr.IOStart {
			d.writeHaltCnt(value)
		} else {
			d.PostFlg = value
		}
		return
	}

	switch {
	case aligned >= 0xB0 && aligned < 0xE0:
		d.DMA.Write8(offset, value)
		return
	case aligned >= 0x100 && aligned < 0x110:
		d.Timers.Write8(offset, value)
		return
	}

	current := d.Read16(aligned)
	mask := uint16(0xFF) << shift
	d.Write16(aligned, current&^mask|uint16(value)<<shift)
}

func (d *Devices) writeHaltCnt(value uint8) {
	if value&0x80 != 0 {
		d.HaltCnt = Stopped
	} else {
		d.HaltCnt = Halted
	}
}
