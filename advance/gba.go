package advance

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/valerio/go-advance/advance/addr"
	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/cartridge"
	"github.com/valerio/go-advance/advance/cpu"
	"github.com/valerio/go-advance/advance/gpu"
	"github.com/valerio/go-advance/advance/interrupt"
	"github.com/valerio/go-advance/advance/iodev"
	"github.com/valerio/go-advance/advance/sysbus"
)

// ErrFatal is the cause of every error that stops the emulation because the
// CPU could not execute an instruction.
var ErrFatal = errors.New("fatal emulation fault")

// FatalError carries the CPU fault that stopped the emulation.
type FatalError struct {
	Err    error
	PC     uint32
	Cycles uint64
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%v at cycle %d: %v", ErrFatal, e.Cycles, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func (e *FatalError) Is(target error) bool { return target == ErrFatal }

// GameBoyAdvance is the system scheduler. It owns the CPU, the bus and the IO
// units, and decides which of them acts on every step.
type GameBoyAdvance struct {
	cpu     *cpu.Core
	bus     *sysbus.Bus
	io      *iodev.Devices
	backend backend.Backend

	frames uint64
}

// New wires a system around core. The IO units are created here and shared
// between the bus, which routes register accesses to them, and the scheduler,
// which steps them. A nil cart leaves the game pak slot empty.
func New(core *cpu.Core, bios []byte, cart *cartridge.Cartridge, be backend.Backend) *GameBoyAdvance {
	io := iodev.New()
	return &GameBoyAdvance{
		cpu:     core,
		bus:     sysbus.New(io, bios, cart),
		io:      io,
		backend: be,
	}
}

// NewWithFiles loads a cartridge and an optional BIOS image and creates a
// system for them. Without a BIOS the CPU starts directly at the cartridge
// entry point.
func NewWithFiles(biosPath, romPath string, be backend.Backend) (*GameBoyAdvance, error) {
	cart, err := cartridge.Load(romPath)
	if err != nil {
		return nil, err
	}

	if biosPath == "" {
		slog.Info("No BIOS image, starting at the cartridge entry point")
		return New(cpu.New(true), nil, cart, be), nil
	}

	bios, err := os.ReadFile(biosPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read BIOS: %w", err)
	}
	if len(bios) > addr.BIOSSize {
		return nil, fmt.Errorf("BIOS image is %d bytes, expected at most %d", len(bios), addr.BIOSSize)
	}
	slog.Info("Loaded BIOS", "path", biosPath, "size", len(bios))

	return New(cpu.New(false), bios, cart, be), nil
}

// CPU returns the CPU core.
func (g *GameBoyAdvance) CPU() *cpu.Core {
	return g.cpu
}

// Bus returns the system bus.
func (g *GameBoyAdvance) Bus() *sysbus.Bus {
	return g.bus
}

// IO returns the IO units.
func (g *GameBoyAdvance) IO() *iodev.Devices {
	return g.io
}

// FrameCount returns the number of frames presented so far.
func (g *GameBoyAdvance) FrameCount() uint64 {
	return g.frames
}

// Step advances the system by one scheduling decision. A pending DMA
// transfer runs first and takes the whole step. Otherwise a pending
// interrupt is delivered to the CPU, waking it from halt, and the CPU
// executes one instruction; a halted CPU idles for a single cycle. The
// timers and the display then advance by the cycles that elapsed, and the
// interrupt requests raised during the step are merged into IF.
func (g *GameBoyAdvance) Step() error {
	var irqs interrupt.Bitmask
	io := g.io

	start := g.cpu.Cycles()
	elapsed := 0

	if !io.DMA.PerformWork(g.bus, &irqs) {
		if io.Intc.Pending() {
			g.cpu.IRQ(g.bus)
			io.HaltCnt = iodev.Running
		}

		if io.HaltCnt == iodev.Running {
			pc := g.cpu.NextPC()
			if err := g.cpu.Step(g.bus); err != nil {
				return errors.WithStack(&FatalError{Err: err, PC: pc, Cycles: g.cpu.Cycles()})
			}
			elapsed = int(g.cpu.Cycles() - start)
		} else {
			elapsed = 1
		}
	}

	io.Timers.Step(elapsed, &irqs)

	if state, changed := io.GPU.Step(elapsed, &irqs); changed {
		switch state {
		case gpu.VBlank:
			if err := g.backend.Present(io.GPU.Framebuffer()); err != nil {
				// the requests raised by this step are dropped with it
				return fmt.Errorf("failed to present frame: %w", err)
			}
			g.frames++
			io.DMA.NotifyVBlank()
		case gpu.HBlank:
			io.DMA.NotifyHBlank()
		}
	}

	io.Intc.Request(irqs)
	return nil
}

// UpdateKeyState copies the backend key state into KEYINPUT.
func (g *GameBoyAdvance) UpdateKeyState() {
	g.io.Keypad.KeyInput = g.backend.KeyState()
}

// Frame polls the keys and runs until the display has entered and then left
// the vertical blank, presenting exactly one frame.
func (g *GameBoyAdvance) Frame() error {
	g.UpdateKeyState()

	for g.io.GPU.State() != gpu.VBlank {
		if err := g.Step(); err != nil {
			return err
		}
	}
	for g.io.GPU.State() == gpu.VBlank {
		if err := g.Step(); err != nil {
			return err
		}
	}
	return nil
}

// FrameOrBreakpoint runs like Frame but stops before executing an
// instruction at a breakpoint, returning its address. The first step always
// runs so that a caller can resume from the breakpoint it stopped at.
func (g *GameBoyAdvance) FrameOrBreakpoint() (uint32, bool, error) {
	g.UpdateKeyState()

	first := true
	run := func(inVBlank bool) (uint32, bool, error) {
		for (g.io.GPU.State() == gpu.VBlank) == inVBlank {
			if !first {
				if address, hit := g.CheckBreakpoint(); hit {
					return address, true, nil
				}
			}
			first = false

			if err := g.Step(); err != nil {
				return 0, false, err
			}
		}
		return 0, false, nil
	}

	if address, hit, err := run(false); hit || err != nil {
		return address, hit, err
	}
	return run(true)
}

// AddBreakpoint registers address as a breakpoint and returns its index. It
// returns false when address is already registered.
func (g *GameBoyAdvance) AddBreakpoint(address uint32) (int, bool) {
	for _, bp := range g.cpu.Breakpoints() {
		if bp == address {
			return 0, false
		}
	}

	index := g.cpu.AppendBreakpoint(address)
	slog.Debug("Breakpoint added", "index", index, "address", fmt.Sprintf("0x%08X", address))
	return index, true
}

// CheckBreakpoint reports whether the next instruction is at a breakpoint.
// It never stops the emulation by itself.
func (g *GameBoyAdvance) CheckBreakpoint() (uint32, bool) {
	next := g.cpu.NextPC()
	for _, bp := range g.cpu.Breakpoints() {
		if bp == next {
			return bp, true
		}
	}
	return 0, false
}
