package cpu

import (
	"fmt"

	"github.com/valerio/go-advance/advance/addr"
	"github.com/valerio/go-advance/advance/bit"
	"github.com/valerio/go-advance/advance/sysbus"
)

// Bus provides the interface for memory access and access timing.
type Bus interface {
	Read8(address uint32) uint8
	Read16(address uint32) uint16
	Read32(address uint32) uint32
	Write8(address uint32, value uint8)
	Write16(address uint32, value uint16)
	Write32(address uint32, value uint32)
	AccessCycles(address uint32, width sysbus.Width) int
}

// Mode is the processor mode held in the low bits of the CPSR.
type Mode uint32

const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "usr"
	case ModeFIQ:
		return "fiq"
	case ModeIRQ:
		return "irq"
	case ModeSupervisor:
		return "svc"
	case ModeAbort:
		return "abt"
	case ModeUndefined:
		return "und"
	case ModeSystem:
		return "sys"
	default:
		return fmt.Sprintf("mode(%#02x)", uint32(m))
	}
}

// CPSR bits
const (
	flagN uint8 = 31
	flagZ uint8 = 30
	flagC uint8 = 29
	flagV uint8 = 28

	irqDisable uint8 = 7
	fiqDisable uint8 = 6
	thumbState uint8 = 5

	modeMask uint32 = 0x1F
)

// default stack pointers set up by the BIOS before jumping to the cartridge
const (
	systemStack     uint32 = 0x03007F00
	irqStack        uint32 = 0x03007FA0
	supervisorStack uint32 = 0x03007FE0

	irqEntryCycles = 3
)

// bank holds the registers that are swapped out on a mode change.
type bank struct {
	sp   uint32
	lr   uint32
	spsr uint32
}

const (
	bankUser = iota
	bankIRQ
	bankSupervisor
	bankCount
)

func bankOf(m Mode) int {
	switch m {
	case ModeIRQ:
		return bankIRQ
	case ModeSupervisor:
		return bankSupervisor
	default:
		return bankUser
	}
}

// Core is an ARM7TDMI core executing in ARM state. There is no pipeline:
// r15 holds the address of the next instruction and reads of r15 as an
// operand return that address plus 8.
type Core struct {
	gpr   [16]uint32
	cpsr  uint32
	banks [bankCount]bank

	cycles uint64

	// address of the instruction being executed
	current uint32

	// instruction addresses a debugger wants to stop at
	breakpoints []uint32
}

// New returns a core in its reset state. With skipBIOS the core starts at the
// cartridge entry point with the stacks the BIOS would have set up.
func New(skipBIOS bool) *Core {
	c := &Core{}
	c.Reset(skipBIOS)
	return c
}

// Reset puts the core back in its power-on state. Breakpoints are kept.
func (c *Core) Reset(skipBIOS bool) {
	c.gpr = [16]uint32{}
	c.banks = [bankCount]bank{}
	c.cycles = 0

	if !skipBIOS {
		c.cpsr = uint32(ModeSupervisor) | 1<<irqDisable | 1<<fiqDisable
		c.gpr[15] = addr.ResetVector
		return
	}

	c.cpsr = uint32(ModeSystem)
	c.gpr[13] = systemStack
	c.banks[bankIRQ].sp = irqStack
	c.banks[bankSupervisor].sp = supervisorStack
	c.gpr[15] = addr.GamePakStart
}

// Breakpoints returns the registered breakpoint addresses in insertion order.
func (c *Core) Breakpoints() []uint32 {
	return c.breakpoints
}

// AppendBreakpoint registers address and returns its index. Callers are
// expected to check for duplicates.
func (c *Core) AppendBreakpoint(address uint32) int {
	c.breakpoints = append(c.breakpoints, address)
	return len(c.breakpoints) - 1
}

// Cycles returns the number of bus cycles consumed since reset.
func (c *Core) Cycles() uint64 {
	return c.cycles
}

// NextPC returns the address of the instruction the next Step will execute.
func (c *Core) NextPC() uint32 {
	return c.gpr[15]
}

// SetPC moves execution to address.
func (c *Core) SetPC(address uint32) {
	c.gpr[15] = address &^ 3
}

// Reg returns the value of register n in the current mode.
func (c *Core) Reg(n int) uint32 {
	return c.gpr[n]
}

// SetReg sets register n in the current mode.
func (c *Core) SetReg(n int, value uint32) {
	c.gpr[n] = value
}

// CPSR returns the current program status register.
func (c *Core) CPSR() uint32 {
	return c.cpsr
}

// Mode returns the current processor mode.
func (c *Core) Mode() Mode {
	return Mode(c.cpsr & modeMask)
}

// IRQDisabled reports whether the I bit of the CPSR masks interrupts.
func (c *Core) IRQDisabled() bool {
	return bit.IsSet(irqDisable, c.cpsr)
}

// Thumb reports whether the core is in Thumb state.
func (c *Core) Thumb() bool {
	return bit.IsSet(thumbState, c.cpsr)
}

func (c *Core) flag(f uint8) bool {
	return bit.IsSet(f, c.cpsr)
}

func (c *Core) setFlag(f uint8, set bool) {
	if set {
		c.cpsr = bit.Set(f, c.cpsr)
	} else {
		c.cpsr = bit.Clear(f, c.cpsr)
	}
}

func (c *Core) setNZ(result uint32) {
	c.setFlag(flagN, bit.IsSet(31, result))
	c.setFlag(flagZ, result == 0)
}

// switchMode swaps the banked registers and updates the mode bits.
func (c *Core) switchMode(m Mode) {
	old := bankOf(c.Mode())
	next := bankOf(m)

	if old != next {
		c.banks[old].sp = c.gpr[13]
		c.banks[old].lr = c.gpr[14]
		c.gpr[13] = c.banks[next].sp
		c.gpr[14] = c.banks[next].lr
	}

	c.cpsr = c.cpsr&^modeMask | uint32(m)
}

func (c *Core) hasSPSR() bool {
	return bankOf(c.Mode()) != bankUser
}

func (c *Core) spsr() uint32 {
	return c.banks[bankOf(c.Mode())].spsr
}

func (c *Core) setSPSR(value uint32) {
	if c.hasSPSR() {
		c.banks[bankOf(c.Mode())].spsr = value
	}
}

// restoreCPSR copies the SPSR of the current mode back into the CPSR, as
// done when returning from an exception.
func (c *Core) restoreCPSR() {
	if !c.hasSPSR() {
		return
	}
	saved := c.spsr()
	c.switchMode(Mode(saved & modeMask))
	c.cpsr = saved
}

// enterException switches to mode, saving the CPSR into its SPSR, and jumps
// to vector. The link register receives returnAddress.
func (c *Core) enterException(m Mode, vector, returnAddress uint32) {
	saved := c.cpsr
	c.switchMode(m)
	c.setSPSR(saved)
	c.cpsr = bit.Set(irqDisable, c.cpsr)
	c.cpsr = bit.Clear(thumbState, c.cpsr)
	c.gpr[14] = returnAddress
	c.gpr[15] = vector
}

// IRQ enters the interrupt handler: the CPSR is saved, the core switches to
// IRQ mode with interrupts masked and jumps to the IRQ vector. The handler
// returns with SUBS PC, LR, #4 to the instruction that was about to run.
// Nothing happens when the I bit masks interrupts.
func (c *Core) IRQ(bus Bus) {
	if c.IRQDisabled() {
		return
	}

	c.enterException(ModeIRQ, addr.IRQVector, c.gpr[15]+4)
	c.cycles += irqEntryCycles + uint64(bus.AccessCycles(addr.IRQVector, sysbus.Word))
}

// Step fetches and executes a single instruction. The returned error is a
// *Fault: the instruction could not be executed and the machine state is no
// longer meaningful.
func (c *Core) Step(bus Bus) error {
	pc := c.gpr[15]
	c.current = pc

	if c.Thumb() {
		return c.fault(0, "thumb state is not supported")
	}
	if pc&3 != 0 {
		return c.fault(0, "misaligned program counter")
	}

	insn := bus.Read32(pc)
	c.cycles += uint64(bus.AccessCycles(pc, sysbus.Word))
	c.gpr[15] = pc + 4

	cond := insn >> 28
	if cond == 0xF {
		return c.fault(insn, "undefined condition code")
	}
	if !c.conditionPassed(cond) {
		return nil
	}

	return c.execute(bus, insn)
}

func (c *Core) conditionPassed(cond uint32) bool {
	n, z, cf, v := c.flag(flagN), c.flag(flagZ), c.flag(flagC), c.flag(flagV)

	switch cond {
	case 0x0:
		return z
	case 0x1:
		return !z
	case 0x2:
		return cf
	case 0x3:
		return !cf
	case 0x4:
		return n
	case 0x5:
		return !n
	case 0x6:
		return v
	case 0x7:
		return !v
	case 0x8:
		return cf && !z
	case 0x9:
		return !cf || z
	case 0xA:
		return n == v
	case 0xB:
		return n != v
	case 0xC:
		return !z && n == v
	case 0xD:
		return z || n != v
	default:
		return true
	}
}

// Fault describes an instruction the core could not execute.
type Fault struct {
	Address uint32
	Opcode  uint32
	Reason  string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("cpu fault at 0x%08X (opcode 0x%08X): %s", f.Address, f.Opcode, f.Reason)
}

func (c *Core) fault(insn uint32, reason string) error {
	return &Fault{Address: c.current, Opcode: insn, Reason: reason}
}
