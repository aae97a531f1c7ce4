package interrupt

import "fmt"

// Bitmask is a set of interrupt sources, laid out like the IE and IF registers.
type Bitmask uint16

const (
	// VBlank is fired when the display enters the vertical blank.
	VBlank Bitmask = 1 << iota
	// HBlank is fired when a scanline enters its horizontal blank.
	HBlank
	// VCounterMatch is fired when VCOUNT equals the DISPSTAT compare value.
	VCounterMatch
	Timer0
	Timer1
	Timer2
	Timer3
	Serial
	DMA0
	DMA1
	DMA2
	DMA3
	Keypad
	GamePak
)

// All covers every valid request bit.
const All Bitmask = 0x3FFF

// TimerSource returns the request bit of timer n.
func TimerSource(n int) Bitmask {
	return Timer0 << Bitmask(n)
}

// DMASource returns the request bit of dma channel n.
func DMASource(n int) Bitmask {
	return DMA0 << Bitmask(n)
}

// Add merges the sources of other into the mask.
func (b *Bitmask) Add(other Bitmask) {
	*b |= other
}

// Has reports whether every source in other is set.
func (b Bitmask) Has(other Bitmask) bool {
	return b&other == other
}

// Empty reports whether no source is set.
func (b Bitmask) Empty() bool {
	return b&All == 0
}

func (b Bitmask) String() string {
	return fmt.Sprintf("IRQ(%014b)", uint16(b))
}

// Controller holds the persistent interrupt state: what is enabled (IE), what
// has been requested (IF) and the master enable (IME).
type Controller struct {
	IE  Bitmask
	IF  Bitmask
	IME bool
}

// New returns a controller with every interrupt disabled.
func New() *Controller {
	return &Controller{}
}

// Pending reports whether a requested and enabled interrupt should be serviced.
func (c *Controller) Pending() bool {
	return c.IME && c.IE&c.IF&All != 0
}

// Request merges the requests collected during a step into IF. Existing
// requests are never cleared here; software acknowledges them through IF.
func (c *Controller) Request(irqs Bitmask) {
	c.IF |= irqs & All
}

// Read16 returns the register at the given offset from the IO base.
func (c *Controller) Read16(offset uint32) uint16 {
	switch offset {
	case 0x200:
		return uint16(c.IE)
	case 0x202:
		return uint16(c.IF)
	case 0x208:
		if c.IME {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Write16 writes the register at the given offset from the IO base.
// Writing 1 to an IF bit acknowledges that request.
func (c *Controller) Write16(offset uint32, value uint16) {
	switch offset {
	case 0x200:
		c.IE = Bitmask(value) & All
	case 0x202:
		c.IF &^= Bitmask(value)
	case 0x208:
		c.IME = value&1 == 1
	}
}
