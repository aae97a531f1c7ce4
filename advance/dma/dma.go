package dma

import (
	"log/slog"

	"github.com/valerio/go-advance/advance/bit"
	"github.com/valerio/go-advance/advance/interrupt"
)

// Bus is the memory surface a transfer reads from and writes to.
type Bus interface {
	Read16(address uint32) uint16
	Read32(address uint32) uint32
	Write16(address uint32, value uint16)
	Write32(address uint32, value uint32)
}

// Timing selects what starts a transfer once the channel is enabled.
type Timing uint8

const (
	Immediate Timing = iota
	VBlank
	HBlank
	Special
)

func (t Timing) String() string {
	switch t {
	case Immediate:
		return "immediate"
	case VBlank:
		return "vblank"
	case HBlank:
		return "hblank"
	default:
		return "special"
	}
}

// address control values for CNT_H bits 5-6 (destination) and 7-8 (source)
const (
	addrIncrement uint16 = iota
	addrDecrement
	addrFixed
	addrIncrementReload
)

const (
	repeatBit   uint8 = 9
	wordSizeBit uint8 = 10
	irqBit      uint8 = 14
	enableBit   uint8 = 15

	// ChannelCount is the number of dma channels.
	ChannelCount = 4

	registerBase   = 0xB0
	registerStride = 12
)

// Channel is a single dma channel. Source, destination and count are latched
// from the registers when the channel is enabled.
type Channel struct {
	index int

	sad     uint32
	dad     uint32
	count   uint16
	control uint16

	src       uint32
	dst       uint32
	remaining uint32

	armed bool
}

func (c *Channel) enabled() bool {
	return bit.IsSet16(enableBit, c.control)
}

func (c *Channel) timing() Timing {
	return Timing((c.control >> 12) & 0x3)
}

func (c *Channel) destControl() uint16 {
	return (c.control >> 5) & 0x3
}

func (c *Channel) sourceControl() uint16 {
	return (c.control >> 7) & 0x3
}

func (c *Channel) wordCount() uint32 {
	if c.index == 3 {
		if c.count == 0 {
			return 0x10000
		}
		return uint32(c.count)
	}

	n := uint32(c.count & 0x3FFF)
	if n == 0 {
		return 0x4000
	}
	return n
}

func (c *Channel) sourceMask() uint32 {
	if c.index == 0 {
		return 0x07FFFFFF
	}
	return 0x0FFFFFFF
}

func (c *Channel) destMask() uint32 {
	if c.index == 3 {
		return 0x0FFFFFFF
	}
	return 0x07FFFFFF
}

func (c *Channel) latch() {
	c.src = c.sad & c.sourceMask()
	c.dst = c.dad & c.destMask()
	c.remaining = c.wordCount()
}

// transfer moves the whole block through the bus.
func (c *Channel) transfer(bus Bus) {
	step := uint32(2)
	if bit.IsSet16(wordSizeBit, c.control) {
		step = 4
	}

	for ; c.remaining > 0; c.remaining-- {
		if step == 4 {
			bus.Write32(c.dst&^3, bus.Read32(c.src&^3))
		} else {
			bus.Write16(c.dst&^1, bus.Read16(c.src&^1))
		}

		c.src = adjust(c.src, c.sourceControl(), step)
		c.dst = adjust(c.dst, c.destControl(), step)
	}
}

func adjust(address uint32, control uint16, step uint32) uint32 {
	switch control {
	case addrDecrement:
		return address - step
	case addrFixed:
		return address
	default:
		return address + step
	}
}

// finish applies the end of transfer rules: irq, repeat and disable.
func (c *Channel) finish(irqs *interrupt.Bitmask) {
	c.armed = false

	if bit.IsSet16(irqBit, c.control) {
		irqs.Add(interrupt.DMASource(c.index))
	}

	if bit.IsSet16(repeatBit, c.control) && c.timing() != Immediate {
		c.remaining = c.wordCount()
		if c.destControl() == addrIncrementReload {
			c.dst = c.dad & c.destMask()
		}
		return
	}

	c.control = bit.Clear16(enableBit, c.control)
}

// Controller owns the four dma channels. Lower channels have priority.
type Controller struct {
	channels [ChannelCount]Channel
}

// New returns a controller with every channel disabled.
func New() *Controller {
	c := &Controller{}
	for i := range c.channels {
		c.channels[i].index = i
	}
	return c
}

// PerformWork runs the highest priority armed channel to completion and
// reports whether the bus was taken. When no channel is armed it declines and
// the caller keeps the cycle.
func (d *Controller) PerformWork(bus Bus, irqs *interrupt.Bitmask) bool {
	for i := range d.channels {
		c := &d.channels[i]
		if !c.armed {
			continue
		}

		slog.Debug("DMA transfer",
			"channel", c.index,
			"timing", c.timing().String(),
			"words", c.remaining)

		c.transfer(bus)
		c.finish(irqs)
		return true
	}

	return false
}

// NotifyVBlank arms the enabled channels waiting for the vertical blank.
func (d *Controller) NotifyVBlank() {
	d.arm(VBlank)
}

// NotifyHBlank arms the enabled channels waiting for the horizontal blank.
func (d *Controller) NotifyHBlank() {
	d.arm(HBlank)
}

func (d *Controller) arm(timing Timing) {
	for i := range d.channels {
		c := &d.channels[i]
		if c.enabled() && c.timing() == timing {
			c.armed = true
		}
	}
}

// Busy reports whether any channel is waiting to transfer.
func (d *Controller) Busy() bool {
	for i := range d.channels {
		if d.channels[i].armed {
			return true
		}
	}
	return false
}

// Read16 reads a channel register at the given offset from the IO base.
// Only CNT_H is readable, the address and count registers read as zero.
func (d *Controller) Read16(offset uint32) uint16 {
	c, reg := d.locate(offset)
	if reg == 10 {
		return c.control
	}
	return 0
}

// Write16 writes a channel register at the given offset from the IO base.
// Setting the enable bit latches the addresses and, for immediate timing,
// arms the channel.
func (d *Controller) Write16(offset uint32, value uint16) {
	c, reg := d.locate(offset)

	switch reg {
	case 0:
		c.sad = bit.Combine(bit.High(c.sad), value)
	case 2:
		c.sad = bit.Combine(value, bit.Low(c.sad))
	case 4:
		c.dad = bit.Combine(bit.High(c.dad), value)
	case 6:
		c.dad = bit.Combine(value, bit.Low(c.dad))
	case 8:
		c.count = value
	case 10:
		wasEnabled := c.enabled()
		c.control = value
		if !c.enabled() {
			c.armed = false
			return
		}
		if !wasEnabled {
			c.latch()
			if c.timing() == Immediate {
				c.armed = true
			}
		}
	}
}

func (d *Controller) locate(offset uint32) (*Channel, uint32) {
	rel := offset - registerBase
	return &d.channels[rel/registerStride], rel % registerStride
}

// Write8 writes one byte of a channel register. The address and count
// registers are write-only, so bytes merge into the stored value.
func (d *Controller) Write8(offset uint32, value uint8) {
	c, reg := d.locate(offset &^ 1)
	shift := (offset & 1) * 8
	merge := func(current uint16) uint16 {
		mask := uint16(0xFF) << shift
		return current&^mask | uint16(value)<<shift
	}

	switch reg {
	case 0:
		c.sad = bit.Combine(bit.High(c.sad), merge(bit.Low(c.sad)))
	case 2:
		c.sad = bit.Combine(merge(bit.High(c.sad)), bit.Low(c.sad))
	case 4:
		c.dad = bit.Combine(bit.High(c.dad), merge(bit.Low(c.dad)))
	case 6:
		c.dad = bit.Combine(merge(bit.High(c.dad)), bit.Low(c.dad))
	case 8:
		c.count = merge(c.count)
	case 10:
		d.Write16(offset&^1, merge(c.control))
	}
}
