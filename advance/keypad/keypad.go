package keypad

import "github.com/valerio/go-advance/advance/bit"

// Key represents a button on the handheld.
type Key uint8

const (
	A Key = iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
	R
	L
)

var keyNames = [...]string{"A", "B", "Select", "Start", "Right", "Left", "Up", "Down", "R", "L"}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "Unknown"
}

// KeyState mirrors the KEYINPUT register: one bit per key, 0 means pressed.
type KeyState uint16

// Released is the key state with nothing pressed.
const Released KeyState = 0x03FF

// Press clears the bit of key.
func (s *KeyState) Press(key Key) {
	*s = KeyState(bit.Clear16(uint8(key), uint16(*s)))
}

// Release sets the bit of key.
func (s *KeyState) Release(key Key) {
	*s = KeyState(bit.Set16(uint8(key), uint16(*s)))
}

// Pressed reports whether key is held down.
func (s KeyState) Pressed(key Key) bool {
	return !bit.IsSet16(uint8(key), uint16(s))
}

// Keypad holds the keypad registers.
type Keypad struct {
	KeyInput KeyState
	KeyCnt   uint16
}

// New returns a keypad with every key released.
func New() *Keypad {
	return &Keypad{KeyInput: Released}
}

// Read16 reads KEYINPUT or KEYCNT at the given offset from the IO base.
func (k *Keypad) Read16(offset uint32) uint16 {
	switch offset {
	case 0x130:
		return uint16(k.KeyInput) & uint16(Released)
	case 0x132:
		return k.KeyCnt
	default:
		return 0
	}
}

// Write16 writes KEYCNT. KEYINPUT is driven by the backend and ignores writes.
func (k *Keypad) Write16(offset uint32, value uint16) {
	if offset == 0x132 {
		k.KeyCnt = value & 0xC3FF
	}
}
