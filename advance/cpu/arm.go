package cpu

import (
	"github.com/valerio/go-advance/advance/addr"
	"github.com/valerio/go-advance/advance/bit"
	"github.com/valerio/go-advance/advance/sysbus"
)

// data processing opcodes
const (
	opAND = iota
	opEOR
	opSUB
	opRSB
	opADD
	opADC
	opSBC
	opRSC
	opTST
	opTEQ
	opCMP
	opCMN
	opORR
	opMOV
	opBIC
	opMVN
)

func (c *Core) execute(bus Bus, insn uint32) error {
	switch {
	case insn&0x0FFFFFF0 == 0x012FFF10:
		c.branchExchange(insn)
	case insn&0x0E000000 == 0x0A000000:
		c.branch(bus, insn)
	case insn&0x0F000000 == 0x0F000000:
		c.softwareInterrupt(bus)
	case insn&0x0FC000F0 == 0x00000090:
		c.multiply(insn)
	case insn&0x0E000090 == 0x00000090:
		return c.fault(insn, "halfword and swap transfers are not supported")
	case insn&0x0FBF0FFF == 0x010F0000:
		c.moveFromStatus(insn)
	case insn&0x0DB0F000 == 0x0120F000:
		c.moveToStatus(insn)
	case insn&0x0C000000 == 0x00000000:
		c.dataProcessing(bus, insn)
	case insn&0x0E000010 == 0x06000010:
		return c.fault(insn, "undefined instruction")
	case insn&0x0C000000 == 0x04000000:
		c.singleTransfer(bus, insn)
	case insn&0x0E000000 == 0x08000000:
		c.blockTransfer(bus, insn)
	default:
		return c.fault(insn, "coprocessor instructions are not supported")
	}
	return nil
}

// operand returns register n as seen by an executing instruction.
func (c *Core) operand(n uint32) uint32 {
	if n == 15 {
		return c.current + 8
	}
	return c.gpr[n]
}

// jump moves the program counter and charges the pipeline refill.
func (c *Core) jump(bus Bus, target uint32) {
	c.gpr[15] = target &^ 3
	c.cycles += 2 * uint64(bus.AccessCycles(c.gpr[15], sysbus.Word))
}

func (c *Core) branch(bus Bus, insn uint32) {
	offset := uint32(int32(insn<<8) >> 6)
	if bit.IsSet(24, insn) {
		c.gpr[14] = c.current + 4
	}
	c.jump(bus, c.current+8+offset)
}

func (c *Core) branchExchange(insn uint32) {
	target := c.operand(insn & 0xF)
	if target&1 != 0 {
		c.cpsr = bit.Set(thumbState, c.cpsr)
		c.gpr[15] = target &^ 1
		return
	}
	c.gpr[15] = target &^ 3
}

func (c *Core) softwareInterrupt(bus Bus) {
	c.enterException(ModeSupervisor, addr.SWIVector, c.current+4)
	c.cycles += 2 * uint64(bus.AccessCycles(addr.SWIVector, sysbus.Word))
}

func (c *Core) multiply(insn uint32) {
	rd := (insn >> 16) & 0xF
	rn := (insn >> 12) & 0xF
	rs := (insn >> 8) & 0xF
	rm := insn & 0xF

	result := c.gpr[rm] * c.gpr[rs]
	if bit.IsSet(21, insn) {
		result += c.gpr[rn]
		c.cycles++
	}
	c.gpr[rd] = result
	c.cycles += multiplyCycles(c.gpr[rs])

	if bit.IsSet(20, insn) {
		c.setNZ(result)
	}
}

// multiplyCycles is the number of internal cycles the multiplier array takes
// for the given multiplier operand.
func multiplyCycles(rs uint32) uint64 {
	switch {
	case rs&0xFFFFFF00 == 0 || rs&0xFFFFFF00 == 0xFFFFFF00:
		return 1
	case rs&0xFFFF0000 == 0 || rs&0xFFFF0000 == 0xFFFF0000:
		return 2
	case rs&0xFF000000 == 0 || rs&0xFF000000 == 0xFF000000:
		return 3
	default:
		return 4
	}
}

func (c *Core) moveFromStatus(insn uint32) {
	rd := (insn >> 12) & 0xF
	if bit.IsSet(22, insn) {
		c.gpr[rd] = c.spsr()
		return
	}
	c.gpr[rd] = c.cpsr
}

func (c *Core) moveToStatus(insn uint32) {
	var value uint32
	if bit.IsSet(25, insn) {
		value = bit.RotateRight(insn&0xFF, uint((insn>>8)&0xF)*2)
	} else {
		value = c.gpr[insn&0xF]
	}

	var mask uint32
	if bit.IsSet(19, insn) {
		mask |= 0xFF000000
	}
	if bit.IsSet(16, insn) && c.Mode() != ModeUser {
		mask |= 0x000000FF
	}

	if bit.IsSet(22, insn) {
		if c.hasSPSR() {
			c.setSPSR(c.spsr()&^mask | value&mask)
		}
		return
	}

	if mask&0xFF != 0 {
		c.switchMode(Mode(value & modeMask))
	}
	c.cpsr = c.cpsr&^mask | value&mask
}

// shift applies a barrel shifter operation. immediate selects the encoding
// where an amount of 0 stands for LSR/ASR #32 and RRX.
func (c *Core) shift(kind, value, amount uint32, immediate bool) (uint32, bool) {
	carry := c.flag(flagC)

	switch kind {
	case 0: // LSL
		switch {
		case amount == 0:
			return value, carry
		case amount < 32:
			return value << amount, bit.IsSet(uint8(32-amount), value)
		case amount == 32:
			return 0, bit.IsSet(0, value)
		default:
			return 0, false
		}
	case 1: // LSR
		if amount == 0 {
			if !immediate {
				return value, carry
			}
			amount = 32
		}
		switch {
		case amount < 32:
			return value >> amount, bit.IsSet(uint8(amount-1), value)
		case amount == 32:
			return 0, bit.IsSet(31, value)
		default:
			return 0, false
		}
	case 2: // ASR
		if amount == 0 {
			if !immediate {
				return value, carry
			}
			amount = 32
		}
		if amount >= 32 {
			if bit.IsSet(31, value) {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(value) >> amount), bit.IsSet(uint8(amount-1), value)
	default: // ROR
		if amount == 0 {
			if !immediate {
				return value, carry
			}
			var in uint32
			if carry {
				in = 1 << 31
			}
			return in | value>>1, bit.IsSet(0, value)
		}
		amount &= 31
		if amount == 0 {
			return value, bit.IsSet(31, value)
		}
		return bit.RotateRight(value, uint(amount)), bit.IsSet(uint8(amount-1), value)
	}
}

// shifterOperand decodes operand 2 of a data processing instruction.
func (c *Core) shifterOperand(insn uint32) (uint32, bool) {
	if bit.IsSet(25, insn) {
		imm := insn & 0xFF
		rotate := (insn >> 8) & 0xF
		if rotate == 0 {
			return imm, c.flag(flagC)
		}
		value := bit.RotateRight(imm, uint(rotate)*2)
		return value, bit.IsSet(31, value)
	}

	rm := insn & 0xF
	kind := (insn >> 5) & 0x3

	if bit.IsSet(4, insn) {
		// register specified shift, the extra internal cycle moves PC one word on
		c.cycles++
		value := c.operand(rm)
		if rm == 15 {
			value += 4
		}
		amount := c.gpr[(insn>>8)&0xF] & 0xFF
		return c.shift(kind, value, amount, false)
	}

	return c.shift(kind, c.operand(rm), (insn>>7)&0x1F, true)
}

func (c *Core) dataProcessing(bus Bus, insn uint32) {
	opcode := (insn >> 21) & 0xF
	setFlags := bit.IsSet(20, insn)
	rn := (insn >> 16) & 0xF
	rd := (insn >> 12) & 0xF

	op2, shiftCarry := c.shifterOperand(insn)
	op1 := c.operand(rn)
	if rn == 15 && !bit.IsSet(25, insn) && bit.IsSet(4, insn) {
		op1 += 4
	}

	var (
		result  uint32
		carry   = shiftCarry
		over    = c.flag(flagV)
		logical = true
		write   = true
	)

	switch opcode {
	case opAND:
		result = op1 & op2
	case opEOR:
		result = op1 ^ op2
	case opSUB:
		result, carry, over = sub(op1, op2, true)
		logical = false
	case opRSB:
		result, carry, over = sub(op2, op1, true)
		logical = false
	case opADD:
		result, carry, over = add(op1, op2, false)
		logical = false
	case opADC:
		result, carry, over = add(op1, op2, c.flag(flagC))
		logical = false
	case opSBC:
		result, carry, over = sub(op1, op2, c.flag(flagC))
		logical = false
	case opRSC:
		result, carry, over = sub(op2, op1, c.flag(flagC))
		logical = false
	case opTST:
		result = op1 & op2
		write = false
	case opTEQ:
		result = op1 ^ op2
		write = false
	case opCMP:
		result, carry, over = sub(op1, op2, true)
		logical, write = false, false
	case opCMN:
		result, carry, over = add(op1, op2, false)
		logical, write = false, false
	case opORR:
		result = op1 | op2
	case opMOV:
		result = op2
	case opBIC:
		result = op1 &^ op2
	case opMVN:
		result = ^op2
	}

	if write && rd == 15 {
		if setFlags {
			c.restoreCPSR()
		}
		c.jump(bus, result)
		return
	}

	if write {
		c.gpr[rd] = result
	}

	if setFlags {
		c.setNZ(result)
		c.setFlag(flagC, carry)
		if !logical {
			c.setFlag(flagV, over)
		}
	}
}

// add computes a + b + carryIn with the resulting carry and overflow.
func add(a, b uint32, carryIn bool) (uint32, bool, bool) {
	wide := uint64(a) + uint64(b)
	if carryIn {
		wide++
	}
	result := uint32(wide)
	over := (a^result)&(b^result)&0x80000000 != 0
	return result, wide > 0xFFFFFFFF, over
}

// sub computes a - b - !carryIn. Carry is set when no borrow happened.
func sub(a, b uint32, carryIn bool) (uint32, bool, bool) {
	borrow := uint64(0)
	if !carryIn {
		borrow = 1
	}
	result := uint32(uint64(a) - uint64(b) - borrow)
	carry := uint64(a) >= uint64(b)+borrow
	over := (a^b)&(a^result)&0x80000000 != 0
	return result, carry, over
}

func (c *Core) singleTransfer(bus Bus, insn uint32) {
	pre := bit.IsSet(24, insn)
	up := bit.IsSet(23, insn)
	byteAccess := bit.IsSet(22, insn)
	writeBack := bit.IsSet(21, insn)
	load := bit.IsSet(20, insn)
	rn := (insn >> 16) & 0xF
	rd := (insn >> 12) & 0xF

	var offset uint32
	if bit.IsSet(25, insn) {
		offset, _ = c.shift((insn>>5)&0x3, c.operand(insn&0xF), (insn>>7)&0x1F, true)
	} else {
		offset = insn & 0xFFF
	}

	base := c.operand(rn)
	moved := base + offset
	if !up {
		moved = base - offset
	}

	address := base
	if pre {
		address = moved
	}

	width := sysbus.Word
	if byteAccess {
		width = sysbus.Byte
	}
	c.cycles += uint64(bus.AccessCycles(address, width))

	if !load {
		value := c.operand(rd)
		if rd == 15 {
			value += 4
		}
		if byteAccess {
			bus.Write8(address, uint8(value))
		} else {
			bus.Write32(address&^3, value)
		}
		if !pre || writeBack {
			c.gpr[rn] = moved
		}
		return
	}

	if (!pre || writeBack) && rn != rd {
		c.gpr[rn] = moved
	}

	var value uint32
	if byteAccess {
		value = uint32(bus.Read8(address))
	} else {
		value = bit.RotateRight(bus.Read32(address&^3), uint(address&3)*8)
	}
	c.cycles++

	if rd == 15 {
		c.jump(bus, value)
		return
	}
	c.gpr[rd] = value
}

func (c *Core) blockTransfer(bus Bus, insn uint32) {
	pre := bit.IsSet(24, insn)
	up := bit.IsSet(23, insn)
	userBank := bit.IsSet(22, insn)
	writeBack := bit.IsSet(21, insn)
	load := bit.IsSet(20, insn)
	rn := (insn >> 16) & 0xF
	list := insn & 0xFFFF

	count := uint32(0)
	for i := 0; i < 16; i++ {
		if bit.IsSet(uint8(i), list) {
			count++
		}
	}
	if count == 0 {
		return
	}

	base := c.gpr[rn]
	start := base
	final := base + 4*count
	if !up {
		start = base - 4*count
		final = start
	}
	if pre == up {
		start += 4
	}

	address := start
	jumped := false
	for i := uint32(0); i < 16; i++ {
		if !bit.IsSet(uint8(i), list) {
			continue
		}
		c.cycles += uint64(bus.AccessCycles(address, sysbus.Word))

		if load {
			value := bus.Read32(address)
			if i == 15 {
				if userBank {
					c.restoreCPSR()
				}
				c.jump(bus, value)
				jumped = true
			} else {
				c.gpr[i] = value
			}
		} else {
			value := c.operand(i)
			if i == 15 {
				value += 4
			}
			bus.Write32(address, value)
		}
		address += 4
	}

	if load && !jumped {
		c.cycles++
	}

	if writeBack && !(load && bit.IsSet(uint8(rn), list)) {
		c.gpr[rn] = final
	}
}
