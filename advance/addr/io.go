package addr

// memory regions, indexed by the top byte of the address
const (
	BIOSStart    uint32 = 0x00000000
	EWRAMStart   uint32 = 0x02000000
	IWRAMStart   uint32 = 0x03000000
	IOStart      uint32 = 0x04000000
	PaletteStart uint32 = 0x05000000
	VRAMStart    uint32 = 0x06000000
	OAMStart     uint32 = 0x07000000
	GamePakStart uint32 = 0x08000000
	SRAMStart    uint32 = 0x0E000000

	BIOSSize    = 16 * 1024
	EWRAMSize   = 256 * 1024
	IWRAMSize   = 32 * 1024
	IOSize      = 0x400
	PaletteSize = 1024
	VRAMSize    = 96 * 1024
	OAMSize     = 1024
	SRAMSize    = 64 * 1024
)

// display registers
const (
	// DISPCNT is the LCD control register.
	DISPCNT uint32 = 0x04000000
	// DISPSTAT holds the blanking flags, V-counter match flag and the display IRQ enables.
	DISPSTAT uint32 = 0x04000004
	// VCOUNT is the current scanline (read-only).
	VCOUNT uint32 = 0x04000006
)

// timers, 4 bytes per timer
const (
	TM0CNTL uint32 = 0x04000100
	TM0CNTH uint32 = 0x04000102
	TM3CNTH uint32 = 0x0400010E
)

// dma channels, 12 bytes per channel
const (
	DMA0SAD  uint32 = 0x040000B0
	DMA3CNTH uint32 = 0x040000DE
)

// keypad
const (
	// KEYINPUT holds the key status, 0 means pressed.
	KEYINPUT uint32 = 0x04000130
	// KEYCNT is the keypad interrupt control register.
	KEYCNT uint32 = 0x04000132
)

// interrupts and system control
const (
	// IE is the address for the Interrupt Enable register.
	IE uint32 = 0x04000200
	// IF is the address for the Interrupt Request Flags register.
	IF uint32 = 0x04000202
	// WAITCNT is the game pak waitstate control register.
	WAITCNT uint32 = 0x04000204
	// IME is the address for the Interrupt Master Enable register.
	IME uint32 = 0x04000208
	// POSTFLG is set by the BIOS after the first boot.
	POSTFLG uint32 = 0x04000300
	// HALTCNT puts the CPU in halt (bit 7 clear) or stop (bit 7 set) mode on write.
	HALTCNT uint32 = 0x04000301
)

// Exception vectors.
const (
	ResetVector uint32 = 0x00
	SWIVector   uint32 = 0x08
	IRQVector   uint32 = 0x18
)
