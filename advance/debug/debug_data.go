package debug

import (
	"fmt"
	"strings"

	"github.com/valerio/go-advance/advance/disasm"
)

// CPUState contains the CPU registers for debugging
type CPUState struct {
	Registers [16]uint32
	CPSR      uint32
	Mode      string
	Cycles    uint64
}

// MemorySnapshot is a window of words around the program counter.
type MemorySnapshot struct {
	StartAddr uint32
	Words     []uint32
}

// DebuggerState represents the current debugger state
type DebuggerState int

const (
	DebuggerRunning DebuggerState = iota
	DebuggerPaused
	DebuggerStepFrame
)

func (s DebuggerState) String() string {
	switch s {
	case DebuggerRunning:
		return "running"
	case DebuggerPaused:
		return "paused"
	case DebuggerStepFrame:
		return "step frame"
	default:
		return "unknown"
	}
}

// CompleteDebugData contains all debug information needed by debug displays
type CompleteDebugData struct {
	CPU             *CPUState
	Memory          *MemorySnapshot
	Disassembly     []disasm.DisassemblyLine
	DebuggerState   DebuggerState
	InterruptEnable uint16
	InterruptFlags  uint16
	MasterEnable    bool
	Halt            string
	Line            int
	Frame           uint64
}

// FormatRegisters renders the register file as lines of text, four
// registers per line followed by the status register.
func (s *CPUState) FormatRegisters() []string {
	lines := make([]string, 0, 5)
	for row := 0; row < 4; row++ {
		var sb strings.Builder
		for col := 0; col < 4; col++ {
			n := row*4 + col
			if col > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%-3s %08X", registerName(n), s.Registers[n])
		}
		lines = append(lines, sb.String())
	}

	flags := []byte("----")
	for i, name := range "NZCV" {
		if s.CPSR&(1<<(31-i)) != 0 {
			flags[i] = byte(name)
		}
	}
	lines = append(lines, fmt.Sprintf("CPSR %08X [%s] %s cycles=%d", s.CPSR, flags, s.Mode, s.Cycles))
	return lines
}

func registerName(n int) string {
	switch n {
	case 13:
		return "SP"
	case 14:
		return "LR"
	case 15:
		return "PC"
	default:
		return fmt.Sprintf("R%d", n)
	}
}
