// Package disasm renders ARM instructions as assembly text for debug
// displays. It understands the same instruction classes the CPU executes.
package disasm

import (
	"fmt"
	"strings"

	"github.com/valerio/go-advance/advance/bit"
)

// DisassemblyLine represents a single disassembled instruction
type DisassemblyLine struct {
	Address     uint32
	Opcode      uint32
	Instruction string
}

// Reader is the memory the disassembler fetches instructions from.
type Reader interface {
	Read32(address uint32) uint32
}

// DisassembleAt disassembles the instruction at the given address
func DisassembleAt(address uint32, mem Reader) DisassemblyLine {
	opcode := mem.Read32(address)
	return DisassemblyLine{
		Address:     address,
		Opcode:      opcode,
		Instruction: Disassemble(address, opcode),
	}
}

// DisassembleRange disassembles count consecutive instructions from start.
func DisassembleRange(start uint32, count int, mem Reader) []DisassemblyLine {
	lines := make([]DisassemblyLine, count)
	for i := range lines {
		lines[i] = DisassembleAt(start+uint32(i)*4, mem)
	}
	return lines
}

var conditions = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "", "nv",
}

var dataOps = [16]string{
	"and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
	"tst", "teq", "cmp", "cmn", "orr", "mov", "bic", "mvn",
}

var shiftNames = [4]string{"lsl", "lsr", "asr", "ror"}

func reg(n uint32) string {
	switch n {
	case 13:
		return "sp"
	case 14:
		return "lr"
	case 15:
		return "pc"
	default:
		return fmt.Sprintf("r%d", n)
	}
}

// Disassemble renders the instruction opcode located at address.
func Disassemble(address, opcode uint32) string {
	cond := conditions[opcode>>28]

	switch {
	case opcode&0x0FFFFFF0 == 0x012FFF10:
		return fmt.Sprintf("bx%s %s", cond, reg(opcode&0xF))
	case opcode&0x0E000000 == 0x0A000000:
		mnemonic := "b"
		if bit.IsSet(24, opcode) {
			mnemonic = "bl"
		}
		target := address + 8 + uint32(int32(opcode<<8)>>6)
		return fmt.Sprintf("%s%s 0x%08X", mnemonic, cond, target)
	case opcode&0x0F000000 == 0x0F000000:
		return fmt.Sprintf("swi%s 0x%06X", cond, opcode&0xFFFFFF)
	case opcode&0x0FC000F0 == 0x00000090:
		return multiply(opcode, cond)
	case opcode&0x0E000090 == 0x00000090:
		return unknown(opcode)
	case opcode&0x0FBF0FFF == 0x010F0000:
		return fmt.Sprintf("mrs%s %s, %s", cond, reg((opcode>>12)&0xF), psr(opcode))
	case opcode&0x0DB0F000 == 0x0120F000:
		return moveToStatus(opcode, cond)
	case opcode&0x0C000000 == 0x00000000:
		return dataProcessing(opcode, cond)
	case opcode&0x0E000010 == 0x06000010:
		return unknown(opcode)
	case opcode&0x0C000000 == 0x04000000:
		return singleTransfer(opcode, cond)
	case opcode&0x0E000000 == 0x08000000:
		return blockTransfer(opcode, cond)
	default:
		return unknown(opcode)
	}
}

func unknown(opcode uint32) string {
	return fmt.Sprintf(".word 0x%08X", opcode)
}

func psr(opcode uint32) string {
	if bit.IsSet(22, opcode) {
		return "spsr"
	}
	return "cpsr"
}

func sFlag(opcode uint32) string {
	if bit.IsSet(20, opcode) {
		return "s"
	}
	return ""
}

func multiply(opcode uint32, cond string) string {
	rd := reg((opcode >> 16) & 0xF)
	rn := reg((opcode >> 12) & 0xF)
	rs := reg((opcode >> 8) & 0xF)
	rm := reg(opcode & 0xF)

	if bit.IsSet(21, opcode) {
		return fmt.Sprintf("mla%s%s %s, %s, %s, %s", cond, sFlag(opcode), rd, rm, rs, rn)
	}
	return fmt.Sprintf("mul%s%s %s, %s, %s", cond, sFlag(opcode), rd, rm, rs)
}

func moveToStatus(opcode uint32, cond string) string {
	fields := ""
	for i, name := range "cxsf" {
		if bit.IsSet(uint8(16+i), opcode) {
			fields += string(name)
		}
	}

	var source string
	if bit.IsSet(25, opcode) {
		source = fmt.Sprintf("#0x%X", immediate(opcode))
	} else {
		source = reg(opcode & 0xF)
	}
	return fmt.Sprintf("msr%s %s_%s, %s", cond, psr(opcode), fields, source)
}

func immediate(opcode uint32) uint32 {
	return bit.RotateRight(opcode&0xFF, uint((opcode>>8)&0xF)*2)
}

// shiftedRegister renders the register operand of data processing and
// register-offset transfers.
func shiftedRegister(opcode uint32) string {
	rm := reg(opcode & 0xF)
	kind := (opcode >> 5) & 0x3

	if bit.IsSet(4, opcode) {
		return fmt.Sprintf("%s, %s %s", rm, shiftNames[kind], reg((opcode>>8)&0xF))
	}

	amount := (opcode >> 7) & 0x1F
	switch {
	case amount == 0 && kind == 0:
		return rm
	case amount == 0 && kind == 3:
		return rm + ", rrx"
	case amount == 0:
		amount = 32
	}
	return fmt.Sprintf("%s, %s #%d", rm, shiftNames[kind], amount)
}

func dataProcessing(opcode uint32, cond string) string {
	op := (opcode >> 21) & 0xF
	rd := reg((opcode >> 12) & 0xF)
	rn := reg((opcode >> 16) & 0xF)

	var operand string
	if bit.IsSet(25, opcode) {
		operand = fmt.Sprintf("#0x%X", immediate(opcode))
	} else {
		operand = shiftedRegister(opcode)
	}

	mnemonic := dataOps[op] + cond
	switch op {
	case 8, 9, 10, 11: // tst, teq, cmp, cmn
		return fmt.Sprintf("%s %s, %s", mnemonic, rn, operand)
	case 13, 15: // mov, mvn
		return fmt.Sprintf("%s%s %s, %s", mnemonic, sFlag(opcode), rd, operand)
	default:
		return fmt.Sprintf("%s%s %s, %s, %s", mnemonic, sFlag(opcode), rd, rn, operand)
	}
}

func singleTransfer(opcode uint32, cond string) string {
	mnemonic := "str"
	if bit.IsSet(20, opcode) {
		mnemonic = "ldr"
	}
	mnemonic += cond
	if bit.IsSet(22, opcode) {
		mnemonic += "b"
	}

	rd := reg((opcode >> 12) & 0xF)
	rn := reg((opcode >> 16) & 0xF)

	sign := ""
	if !bit.IsSet(23, opcode) {
		sign = "-"
	}

	var offset string
	if bit.IsSet(25, opcode) {
		offset = sign + shiftedRegister(opcode)
	} else if imm := opcode & 0xFFF; imm != 0 {
		offset = fmt.Sprintf("#%s0x%X", sign, imm)
	}

	preIndexed := bit.IsSet(24, opcode)
	switch {
	case !preIndexed:
		return fmt.Sprintf("%s %s, [%s], %s", mnemonic, rd, rn, offset)
	case offset == "":
		return fmt.Sprintf("%s %s, [%s]", mnemonic, rd, rn)
	case bit.IsSet(21, opcode):
		return fmt.Sprintf("%s %s, [%s, %s]!", mnemonic, rd, rn, offset)
	default:
		return fmt.Sprintf("%s %s, [%s, %s]", mnemonic, rd, rn, offset)
	}
}

func blockTransfer(opcode uint32, cond string) string {
	mnemonic := "stm"
	if bit.IsSet(20, opcode) {
		mnemonic = "ldm"
	}

	mode := "d"
	if bit.IsSet(23, opcode) {
		mode = "i"
	}
	if bit.IsSet(24, opcode) {
		mode += "b"
	} else {
		mode += "a"
	}

	rn := reg((opcode >> 16) & 0xF)
	if bit.IsSet(21, opcode) {
		rn += "!"
	}

	var regs []string
	for i := uint32(0); i < 16; i++ {
		if bit.IsSet(uint8(i), opcode) {
			regs = append(regs, reg(i))
		}
	}

	suffix := ""
	if bit.IsSet(22, opcode) {
		suffix = "^"
	}
	return fmt.Sprintf("%s%s%s %s, {%s}%s", mnemonic, cond, mode, rn, strings.Join(regs, ", "), suffix)
}
