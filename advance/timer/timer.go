package timer

import (
	"github.com/valerio/go-advance/advance/bit"
	"github.com/valerio/go-advance/advance/interrupt"
)

// Count is the number of hardware timers.
const Count = 4

// prescalerLookup maps TMxCNT_H bits 1-0 to the number of bus cycles per tick.
var prescalerLookup = [4]int{1, 64, 256, 1024}

const (
	countUpBit uint8 = 2
	irqBit     uint8 = 6
	startBit   uint8 = 7
)

// Timer is a single 16 bit up-counter.
type Timer struct {
	index   int
	counter uint16
	reload  uint16
	control uint16

	// cycles accumulated towards the next prescaled tick
	pending int
}

func (t *Timer) running() bool {
	return bit.IsSet16(startBit, t.control)
}

// cascade timers are clocked by the overflow of the previous timer instead of the bus clock.
func (t *Timer) cascade() bool {
	return t.index > 0 && bit.IsSet16(countUpBit, t.control)
}

func (t *Timer) prescaler() int {
	return prescalerLookup[t.control&0x03]
}

// advance adds ticks to the counter and returns how many times it overflowed.
// Every overflow reloads the counter.
func (t *Timer) advance(ticks int) int {
	remaining := 0x10000 - int(t.counter)
	if ticks < remaining {
		t.counter += uint16(ticks)
		return 0
	}

	ticks -= remaining
	t.counter = t.reload
	period := 0x10000 - int(t.reload)

	overflows := 1 + ticks/period
	t.counter += uint16(ticks % period)
	return overflows
}

// Bank holds the four timers of the system.
type Bank struct {
	timers [Count]Timer
}

// New returns a bank of stopped timers.
func New() *Bank {
	b := &Bank{}
	for i := range b.timers {
		b.timers[i].index = i
	}
	return b
}

// Step advances the timers by the given amount of bus cycles, adding a
// request to irqs for every timer that overflowed with its IRQ enabled.
func (b *Bank) Step(cycles int, irqs *interrupt.Bitmask) {
	if cycles <= 0 {
		return
	}

	for i := range b.timers {
		t := &b.timers[i]
		if !t.running() || t.cascade() {
			continue
		}

		t.pending += cycles
		prescaler := t.prescaler()
		ticks := t.pending / prescaler
		t.pending %= prescaler

		if ticks > 0 {
			b.overflow(i, t.advance(ticks), irqs)
		}
	}
}

// overflow requests the interrupt of timer i and clocks the cascade chain behind it.
func (b *Bank) overflow(i, overflows int, irqs *interrupt.Bitmask) {
	if overflows == 0 {
		return
	}

	if bit.IsSet16(irqBit, b.timers[i].control) {
		irqs.Add(interrupt.TimerSource(i))
	}

	next := i + 1
	if next >= Count {
		return
	}

	n := &b.timers[next]
	if n.running() && n.cascade() {
		b.overflow(next, n.advance(overflows), irqs)
	}
}

// Counter returns the live counter value of timer n.
func (b *Bank) Counter(n int) uint16 {
	return b.timers[n].counter
}

// Read16 reads TMxCNT_L (the counter) or TMxCNT_H at the given offset from the IO base.
func (b *Bank) Read16(offset uint32) uint16 {
	t := &b.timers[(offset-0x100)/4]
	if offset&2 == 0 {
		return t.counter
	}
	return t.control
}

// Write16 writes TMxCNT_L (the reload value) or TMxCNT_H at the given offset from the IO base.
// Starting a stopped timer loads the reload value into the counter.
func (b *Bank) Write16(offset uint32, value uint16) {
	t := &b.timers[(offset-0x100)/4]
	if offset&2 == 0 {
		t.reload = value
		return
	}

	wasRunning := t.running()
	t.control = value & 0x00C7
	if !wasRunning && t.running() {
		t.counter = t.reload
		t.pending = 0
	}
}

// Write8 writes one byte of a timer register. Reload bytes merge into the
// reload value since TMxCNT_L reads back the counter.
func (b *Bank) Write8(offset uint32, value uint8) {
	t := &b.timers[(offset-0x100)/4]
	shift := (offset & 1) * 8
	mask := uint16(0xFF) << shift

	if offset&2 == 0 {
		t.reload = t.reload&^mask | uint16(value)<<shift
		return
	}
	b.Write16(offset&^1, t.control&^mask|uint16(value)<<shift)
}
