package interrupt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPending(t *testing.T) {
	t.Run("nothing requested", func(t *testing.T) {
		c := New()
		c.IME = true
		c.IE = All
		assert.False(t, c.Pending())
	})

	t.Run("requested but not enabled", func(t *testing.T) {
		c := New()
		c.IME = true
		c.IE = VBlank
		c.Request(Timer0)
		assert.False(t, c.Pending())
	})

	t.Run("master enable off", func(t *testing.T) {
		c := New()
		c.IE = VBlank
		c.Request(VBlank)
		assert.False(t, c.Pending())
	})

	t.Run("requested and enabled", func(t *testing.T) {
		c := New()
		c.IME = true
		c.IE = VBlank | Timer2
		c.Request(Timer2)
		assert.True(t, c.Pending())
	})
}

func TestRequestMerges(t *testing.T) {
	c := New()
	c.Request(VBlank)
	c.Request(HBlank | DMA3)
	c.Request(0)

	assert.Equal(t, VBlank|HBlank|DMA3, c.IF)
}

func TestRegisters(t *testing.T) {
	c := New()

	c.Write16(0x200, 0xFFFF)
	assert.Equal(t, uint16(All), c.Read16(0x200))

	c.Write16(0x208, 1)
	assert.True(t, c.IME)
	assert.Equal(t, uint16(1), c.Read16(0x208))

	c.Request(VBlank | Timer1 | Keypad)
	c.Write16(0x202, uint16(Timer1))
	assert.Equal(t, uint16(VBlank|Keypad), c.Read16(0x202), "writing 1 acknowledges only that source")
}

func TestBitmask(t *testing.T) {
	var irqs Bitmask
	assert.True(t, irqs.Empty())

	irqs.Add(TimerSource(3))
	irqs.Add(DMASource(0))

	assert.True(t, irqs.Has(Timer3))
	assert.True(t, irqs.Has(DMA0))
	assert.False(t, irqs.Has(Timer3|VBlank))
	assert.Equal(t, Bitmask(1<<13), GamePak)
}
