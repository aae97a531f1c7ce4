package advance

import (
	"github.com/valerio/go-advance/advance/debug"
	"github.com/valerio/go-advance/advance/disasm"
)

// snapshot window around the program counter, in words
const (
	snapshotBefore = 4
	snapshotWords  = 12
)

// ExtractDebugData captures the CPU registers, the code around the program
// counter and the interrupt state for debug displays.
func (g *GameBoyAdvance) ExtractDebugData() *debug.CompleteDebugData {
	if g.cpu == nil || g.io == nil {
		return nil
	}

	c := g.cpu
	state := &debug.CPUState{
		CPSR:   c.CPSR(),
		Mode:   c.Mode().String(),
		Cycles: c.Cycles(),
	}
	for i := range state.Registers {
		state.Registers[i] = c.Reg(i)
	}

	pc := c.NextPC() &^ 3
	start := uint32(0)
	if pc >= snapshotBefore*4 {
		start = pc - snapshotBefore*4
	}
	lines := disasm.DisassembleRange(start, snapshotWords, g.bus)
	words := make([]uint32, len(lines))
	for i, line := range lines {
		words[i] = line.Opcode
	}

	return &debug.CompleteDebugData{
		CPU:             state,
		Memory:          &debug.MemorySnapshot{StartAddr: start, Words: words},
		Disassembly:     lines,
		InterruptEnable: uint16(g.io.Intc.IE),
		InterruptFlags:  uint16(g.io.Intc.IF),
		MasterEnable:    g.io.Intc.IME,
		Halt:            g.io.HaltCnt.String(),
		Line:            g.io.GPU.Line(),
		Frame:           g.frames,
	}
}
