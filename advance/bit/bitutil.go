package bit

// IsSet will check if the bit at the specified index is set to 1 or not.
func IsSet(index uint8, value uint32) bool {
	return (value>>index)&1 == 1
}

// IsSet16 is IsSet for 16 bit register values.
func IsSet16(index uint8, value uint16) bool {
	return (value>>index)&1 == 1
}

// Set will return the passed value with the bit at the specified index set to 1.
func Set(index uint8, value uint32) uint32 {
	return value | (1 << index)
}

// Clear will return the passed value with the bit at the specified index set to 0.
func Clear(index uint8, value uint32) uint32 {
	return value &^ (1 << index)
}

// Set16 is Set for 16 bit register values.
func Set16(index uint8, value uint16) uint16 {
	return value | (1 << index)
}

// Clear16 is Clear for 16 bit register values.
func Clear16(index uint8, value uint16) uint16 {
	return value &^ (1 << index)
}

// ExtractBits extracts bits from highBit to lowBit (inclusive)
// Example: ExtractBits(0b11010110, 6, 4) -> 0b101 (extracts bits 6, 5, 4)
func ExtractBits(value uint32, highBit, lowBit uint8) uint32 {
	width := highBit - lowBit + 1
	mask := uint32((uint64(1) << width) - 1)
	return (value >> lowBit) & mask
}

// Low returns the low half-word of a 32 bit value.
func Low(value uint32) uint16 {
	return uint16(value)
}

// High returns the high half-word of a 32 bit value.
func High(value uint32) uint16 {
	return uint16(value >> 16)
}

// Combine combines two 16 bit values into a single 32 bit value.
// The high half-word will be the most significant one.
func Combine(high, low uint16) uint32 {
	return uint32(high)<<16 | uint32(low)
}

// RotateRight rotates a 32 bit value right by the given amount.
func RotateRight(value uint32, amount uint) uint32 {
	amount &= 31
	return value>>amount | value<<(32-amount)
}

// CheckedAdd adds two 32 bit unsigned values and detects if a carry out happened.
func CheckedAdd(a, b uint32) (result uint32, carry bool) {
	wide := uint64(a) + uint64(b)
	return uint32(wide), wide > 0xFFFFFFFF
}

// CheckedSub subtracts two 32 bit unsigned values. Carry follows the ARM
// convention: it is set when no borrow happened.
func CheckedSub(a, b uint32) (result uint32, carry bool) {
	return a - b, a >= b
}
