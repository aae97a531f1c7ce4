package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type memory map[uint32]uint32

func (m memory) Read32(address uint32) uint32 { return m[address] }

func TestDisassemble(t *testing.T) {
	const romStart = 0x08000000

	tests := []struct {
		opcode   uint32
		expected string
	}{
		{0xE3A00042, "mov r0, #0x42"},
		{0x13A03001, "movne r3, #0x1"},
		{0xE0902001, "adds r2, r0, r1"},
		{0xE1A00080, "mov r0, r0, lsl #1"},
		{0xE1500001, "cmp r0, r1"},
		{0xE25EF004, "subs pc, lr, #0x4"},
		{0xE3A00405, "mov r0, #0x5000000"},
		{0xEAFFFFFE, "b 0x08000000"},
		{0xEB000002, "bl 0x08000010"},
		{0xE12FFF10, "bx r0"},
		{0xEF000000, "swi 0x000000"},
		{0xE0020190, "mul r2, r0, r1"},
		{0xE10F0000, "mrs r0, cpsr"},
		{0xE321F092, "msr cpsr_c, #0x92"},
		{0xE5810004, "str r0, [r1, #0x4]"},
		{0xE5912000, "ldr r2, [r1]"},
		{0xE4810004, "str r0, [r1], #0x4"},
		{0xE5C02301, "strb r2, [r0, #0x301]"},
		{0xE92D0003, "stmdb sp!, {r0, r1}"},
		{0xE8BD000C, "ldmia sp!, {r2, r3}"},
		{0xE1D100B0, ".word 0xE1D100B0"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Disassemble(romStart, tt.opcode))
		})
	}
}

func TestDisassembleRange(t *testing.T) {
	mem := memory{
		0x08000000: 0xE3A00001,
		0x08000004: 0xEAFFFFFE,
	}

	lines := DisassembleRange(0x08000000, 2, mem)
	assert.Len(t, lines, 2)
	assert.Equal(t, DisassemblyLine{Address: 0x08000000, Opcode: 0xE3A00001, Instruction: "mov r0, #0x1"}, lines[0])
	assert.Equal(t, "b 0x08000004", lines[1].Instruction)
}
