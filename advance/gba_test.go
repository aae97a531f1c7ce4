package advance

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-advance/advance/backend/capture"
	"github.com/valerio/go-advance/advance/cartridge"
	"github.com/valerio/go-advance/advance/cpu"
	"github.com/valerio/go-advance/advance/gpu"
	"github.com/valerio/go-advance/advance/interrupt"
	"github.com/valerio/go-advance/advance/iodev"
	"github.com/valerio/go-advance/advance/keypad"
)

const (
	romStart uint32 = 0x08000000

	opLoop     uint32 = 0xEAFFFFFE // b .
	opHalfLoad uint32 = 0xE1D100B0 // ldrh r0, [r1]

	// a looping branch in ROM: one word fetch plus the refill of two
	loopCycles = 24
)

func romWith(program ...uint32) []byte {
	rom := make([]byte, 0x400)
	for i, insn := range program {
		binary.LittleEndian.PutUint32(rom[i*4:], insn)
	}
	return rom
}

// biosWithHandler returns a BIOS image whose IRQ vector holds mov r0, #0x55.
func biosWithHandler() []byte {
	bios := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(bios[0x18:], 0xE3A00055)
	return bios
}

func newSystem(t *testing.T, bios []byte, program ...uint32) (*GameBoyAdvance, *capture.Backend) {
	t.Helper()

	cart, err := cartridge.NewWithData(romWith(program...))
	require.NoError(t, err)

	be := capture.New()
	return New(cpu.New(true), bios, cart, be), be
}

func steps(t *testing.T, g *GameBoyAdvance, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, g.Step())
	}
}

func startTimer0(g *GameBoyAdvance) {
	g.IO().Timers.Write16(0x102, 0x0080)
}

// armImmediateDMA3 copies four half-words from EWRAM to IWRAM on the next step.
func armImmediateDMA3(g *GameBoyAdvance) {
	bus := g.Bus()
	bus.Write32(0x040000D4, 0x02000000)
	bus.Write32(0x040000D8, 0x03000000)
	bus.Write16(0x040000DC, 4)
	bus.Write16(0x040000DE, 0x8000)
}

func TestStep(t *testing.T) {
	t.Run("cycle counter is monotonic", func(t *testing.T) {
		g, _ := newSystem(t, nil, opLoop)

		last := g.CPU().Cycles()
		for i := 0; i < 100; i++ {
			require.NoError(t, g.Step())
			now := g.CPU().Cycles()
			assert.Equal(t, uint64(loopCycles), now-last)
			last = now
		}
	})

	t.Run("timers advance by the elapsed cycles", func(t *testing.T) {
		g, _ := newSystem(t, nil, opLoop)
		startTimer0(g)

		steps(t, g, 10)
		assert.Equal(t, uint16(10*loopCycles), g.IO().Timers.Counter(0))
	})

	t.Run("requests are merged into IF", func(t *testing.T) {
		g, _ := newSystem(t, nil, opLoop)
		g.Bus().Write16(0x04000004, 0x0008) // vblank irq enable
		g.IO().Intc.IF = interrupt.Keypad

		for g.IO().GPU.State() != gpu.VBlank {
			require.NoError(t, g.Step())
		}

		assert.True(t, g.IO().Intc.IF.Has(interrupt.VBlank))
		assert.True(t, g.IO().Intc.IF.Has(interrupt.Keypad), "requests never clear pending flags")
	})
}

func TestDMAPreemption(t *testing.T) {
	g, _ := newSystem(t, nil, opLoop)
	startTimer0(g)
	for i := uint32(0); i < 4; i++ {
		g.Bus().Write16(0x02000000+i*2, uint16(0xA0+i))
	}

	armImmediateDMA3(g)
	pc := g.CPU().NextPC()
	cycles := g.CPU().Cycles()

	require.NoError(t, g.Step())
	assert.Equal(t, cycles, g.CPU().Cycles(), "the cpu does not run on a dma step")
	assert.Equal(t, pc, g.CPU().NextPC())
	assert.Zero(t, g.IO().Timers.Counter(0), "timers advance by zero")
	for i := uint32(0); i < 4; i++ {
		assert.Equal(t, uint16(0xA0+i), g.Bus().Read16(0x03000000+i*2))
	}

	require.NoError(t, g.Step())
	assert.Equal(t, cycles+loopCycles, g.CPU().Cycles())
	assert.Equal(t, uint16(loopCycles), g.IO().Timers.Counter(0))
}

func TestDMAAlwaysBusy(t *testing.T) {
	g, _ := newSystem(t, nil, opLoop)
	startTimer0(g)
	pc := g.CPU().NextPC()

	for i := 0; i < 50; i++ {
		g.Bus().Write16(0x040000DE, 0)
		armImmediateDMA3(g)
		require.NoError(t, g.Step())
	}

	assert.Zero(t, g.CPU().Cycles())
	assert.Equal(t, pc, g.CPU().NextPC())
	assert.Zero(t, g.IO().Timers.Counter(0))
	assert.Equal(t, gpu.HDraw, g.IO().GPU.State())
	assert.Zero(t, g.IO().GPU.Line())
}

func TestVBlankDMA(t *testing.T) {
	g, be := newSystem(t, nil, opLoop)
	bus := g.Bus()
	bus.Write16(0x02000000, 0xBEEF)
	bus.Write32(0x040000B0, 0x02000000)
	bus.Write32(0x040000B4, 0x03000100)
	bus.Write16(0x040000B8, 1)
	bus.Write16(0x040000BA, 0x9000) // enable, vblank timing

	for be.PresentCount() == 0 {
		require.NoError(t, g.Step())
	}
	assert.True(t, g.IO().DMA.Busy(), "entering vblank arms the channel")

	cycles := g.CPU().Cycles()
	require.NoError(t, g.Step())
	assert.Equal(t, cycles, g.CPU().Cycles())
	assert.Equal(t, uint16(0xBEEF), bus.Read16(0x03000100))
	assert.False(t, g.IO().DMA.Busy())
}

func TestHBlankDMA(t *testing.T) {
	g, _ := newSystem(t, nil, opLoop)
	bus := g.Bus()
	bus.Write16(0x02000000, 0xCAFE)
	bus.Write32(0x040000BC, 0x02000000)
	bus.Write32(0x040000C0, 0x03000200)
	bus.Write16(0x040000C4, 1)
	bus.Write16(0x040000C6, 0xA000) // enable, hblank timing

	for g.IO().GPU.State() != gpu.HBlank {
		require.NoError(t, g.Step())
	}
	assert.True(t, g.IO().DMA.Busy(), "entering hblank arms the channel")

	cycles := g.CPU().Cycles()
	require.NoError(t, g.Step())
	assert.Equal(t, cycles, g.CPU().Cycles())
	assert.Equal(t, uint16(0xCAFE), bus.Read16(0x03000200))
	assert.False(t, g.IO().DMA.Busy())
}

func TestInterruptBeforeExecute(t *testing.T) {
	g, _ := newSystem(t, biosWithHandler(), opLoop)
	intc := g.IO().Intc
	intc.IME = true
	intc.IE = interrupt.Timer0
	intc.Request(interrupt.Timer0)

	require.NoError(t, g.Step())

	c := g.CPU()
	assert.Equal(t, cpu.ModeIRQ, c.Mode())
	assert.Equal(t, uint32(0x55), c.Reg(0), "the handler's first instruction ran in the same step")
	assert.Equal(t, uint32(0x1C), c.NextPC())
	assert.Equal(t, romStart+4, c.Reg(14))
}

func TestHalt(t *testing.T) {
	program := []uint32{
		0xE3A01404, // mov r1, #0x04000000
		0xE3A00000, // mov r0, #0
		0xE5C10301, // strb r0, [r1, #0x301]
		opLoop,
	}

	t.Run("halted cpu idles one cycle per step", func(t *testing.T) {
		g, _ := newSystem(t, biosWithHandler(), program...)
		steps(t, g, 3)
		require.Equal(t, iodev.Halted, g.IO().HaltCnt)

		startTimer0(g)
		pc := g.CPU().NextPC()
		cycles := g.CPU().Cycles()

		steps(t, g, 10)
		assert.Equal(t, cycles, g.CPU().Cycles())
		assert.Equal(t, pc, g.CPU().NextPC())
		assert.Equal(t, uint16(10), g.IO().Timers.Counter(0))
	})

	t.Run("interrupt wakes and executes in the same step", func(t *testing.T) {
		g, _ := newSystem(t, biosWithHandler(), program...)
		steps(t, g, 3)
		require.Equal(t, iodev.Halted, g.IO().HaltCnt)

		intc := g.IO().Intc
		intc.IME = true
		intc.IE = interrupt.Timer0
		intc.Request(interrupt.Timer0)
		cycles := g.CPU().Cycles()

		require.NoError(t, g.Step())
		assert.Equal(t, iodev.Running, g.IO().HaltCnt)
		assert.Greater(t, g.CPU().Cycles(), cycles)
		assert.Equal(t, uint32(0x55), g.CPU().Reg(0))
	})

	t.Run("interrupt masked by the cpu still wakes", func(t *testing.T) {
		g, _ := newSystem(t, nil, opLoop)
		g.IO().HaltCnt = iodev.Stopped

		intc := g.IO().Intc
		intc.IME = true
		intc.IE = interrupt.VBlank
		intc.Request(interrupt.VBlank)

		// entering the handler sets the I bit
		g.CPU().IRQ(g.Bus())
		require.True(t, g.CPU().IRQDisabled())
		pc := g.CPU().NextPC()

		require.NoError(t, g.Step())
		assert.Equal(t, iodev.Running, g.IO().HaltCnt)
		assert.NotEqual(t, pc, g.CPU().NextPC(), "the cpu executed")
		assert.Equal(t, cpu.ModeIRQ, g.CPU().Mode())
	})

	t.Run("no interrupt without master enable", func(t *testing.T) {
		g, _ := newSystem(t, nil, opLoop)
		g.IO().HaltCnt = iodev.Halted
		intc := g.IO().Intc
		intc.IE = interrupt.VBlank
		intc.Request(interrupt.VBlank)

		steps(t, g, 5)
		assert.Equal(t, iodev.Halted, g.IO().HaltCnt)
		assert.Zero(t, g.CPU().Cycles())
	})
}

func TestFrame(t *testing.T) {
	t.Run("presents exactly one frame", func(t *testing.T) {
		g, be := newSystem(t, nil, opLoop)

		require.NoError(t, g.Frame())
		assert.Equal(t, 1, be.PresentCount())
		assert.NotEqual(t, gpu.VBlank, g.IO().GPU.State())
		assert.Equal(t, uint64(gpu.CyclesPerFrame), g.CPU().Cycles())

		require.NoError(t, g.Frame())
		assert.Equal(t, 2, be.PresentCount())
		assert.Equal(t, uint64(2*gpu.CyclesPerFrame), g.CPU().Cycles())
		assert.Equal(t, uint64(2), g.FrameCount())
	})

	t.Run("deterministic", func(t *testing.T) {
		a, beA := newSystem(t, nil, opLoop)
		b, beB := newSystem(t, nil, opLoop)

		for i := 0; i < 3; i++ {
			require.NoError(t, a.Frame())
			require.NoError(t, b.Frame())
		}
		assert.Equal(t, a.CPU().Cycles(), b.CPU().Cycles())
		assert.Equal(t, beA.LastFrame().ToSlice(), beB.LastFrame().ToSlice())
	})

	t.Run("polls keys once per frame", func(t *testing.T) {
		g, _ := newSystem(t, nil, opLoop)
		pressed := keypad.Released
		pressed.Press(keypad.Start)
		be := capture.New(keypad.Released, pressed)
		g.backend = be

		require.NoError(t, g.Frame())
		assert.Equal(t, keypad.Released, g.IO().Keypad.KeyInput)
		require.NoError(t, g.Frame())
		assert.True(t, g.IO().Keypad.KeyInput.Pressed(keypad.Start))
		assert.Equal(t, uint16(pressed), g.Bus().Read16(0x04000130))
		assert.Equal(t, 2, be.KeyPolls())
	})

	t.Run("present error stops the frame", func(t *testing.T) {
		g, be := newSystem(t, nil, opLoop)
		lost := errors.New("device lost")
		be.PresentErr = lost

		err := g.Frame()
		require.Error(t, err)
		assert.ErrorIs(t, err, lost)
		assert.False(t, errors.Is(err, ErrFatal))
	})
}

func TestFatalFault(t *testing.T) {
	g, _ := newSystem(t, nil, opHalfLoad)

	err := g.Step()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatal)

	var fault *cpu.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, romStart, fault.Address)
	assert.Equal(t, opHalfLoad, fault.Opcode)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, romStart, fatal.PC)

	g, _ = newSystem(t, nil, opHalfLoad)
	assert.ErrorIs(t, g.Frame(), ErrFatal)
}

func TestBreakpoints(t *testing.T) {
	program := []uint32{
		0xE3A00001, // mov r0, #1
		0xE3A00002, // mov r0, #2
		opLoop,
	}

	t.Run("unique by address", func(t *testing.T) {
		g, _ := newSystem(t, nil, program...)

		index, ok := g.AddBreakpoint(romStart + 8)
		assert.True(t, ok)
		assert.Equal(t, 0, index)

		index, ok = g.AddBreakpoint(romStart + 8)
		assert.False(t, ok)
		assert.Equal(t, 0, index)

		index, ok = g.AddBreakpoint(romStart)
		assert.True(t, ok)
		assert.Equal(t, 1, index)
		assert.Equal(t, []uint32{romStart + 8, romStart}, g.CPU().Breakpoints())
	})

	t.Run("check does not stop execution", func(t *testing.T) {
		g, _ := newSystem(t, nil, program...)
		g.AddBreakpoint(romStart + 4)

		_, hit := g.CheckBreakpoint()
		assert.False(t, hit)

		steps(t, g, 1)
		address, hit := g.CheckBreakpoint()
		assert.True(t, hit)
		assert.Equal(t, romStart+4, address)

		steps(t, g, 1)
		assert.Equal(t, uint32(2), g.CPU().Reg(0))
	})

	t.Run("frame stops at breakpoint", func(t *testing.T) {
		g, be := newSystem(t, nil, program...)
		g.AddBreakpoint(romStart + 8)

		address, hit, err := g.FrameOrBreakpoint()
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, romStart+8, address)
		assert.Equal(t, uint32(2), g.CPU().Reg(0))
		assert.Zero(t, be.PresentCount())

		// resuming executes the instruction at the breakpoint first
		cycles := g.CPU().Cycles()
		address, hit, err = g.FrameOrBreakpoint()
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, romStart+8, address)
		assert.Equal(t, cycles+loopCycles, g.CPU().Cycles())
	})

	t.Run("frame without breakpoints", func(t *testing.T) {
		g, be := newSystem(t, nil, program...)

		_, hit, err := g.FrameOrBreakpoint()
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 1, be.PresentCount())
	})
}
