package sysbus

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-advance/advance/addr"
	"github.com/valerio/go-advance/advance/cartridge"
	"github.com/valerio/go-advance/advance/iodev"
)

type memRegion uint8

const (
	regionBIOS memRegion = iota
	regionEWRAM
	regionIWRAM
	regionIO
	regionPalette
	regionVRAM
	regionOAM
	regionGamePak
	regionSRAM
	regionUnused
)

// Width is the size of a single bus access.
type Width uint8

const (
	Byte Width = iota
	Half
	Word
)

// Bus routes every memory access of the system. It owns the BIOS and work
// RAMs and reaches the cartridge and the IO units through handles; the IO
// units themselves are owned by the caller.
type Bus struct {
	bios  []byte
	ewram []byte
	iwram []byte

	io   *iodev.Devices
	cart *cartridge.Cartridge

	regionMap [256]memRegion
}

// New creates a bus over the given IO units, BIOS image and cartridge.
// A nil BIOS leaves the region zero filled, a nil cartridge behaves like an
// empty slot.
func New(io *iodev.Devices, bios []byte, cart *cartridge.Cartridge) *Bus {
	if cart == nil {
		cart = cartridge.New()
	}

	b := &Bus{
		bios:  make([]byte, addr.BIOSSize),
		ewram: make([]byte, addr.EWRAMSize),
		iwram: make([]byte, addr.IWRAMSize),
		io:    io,
		cart:  cart,
	}
	copy(b.bios, bios)
	initRegionMap(b)
	return b
}

func initRegionMap(b *Bus) {
	for i := range b.regionMap {
		b.regionMap[i] = regionUnused
	}
	b.regionMap[0x00] = regionBIOS
	b.regionMap[0x02] = regionEWRAM
	b.regionMap[0x03] = regionIWRAM
	b.regionMap[0x04] = regionIO
	b.regionMap[0x05] = regionPalette
	b.regionMap[0x06] = regionVRAM
	b.regionMap[0x07] = regionOAM
	for i := 0x08; i <= 0x0D; i++ {
		b.regionMap[i] = regionGamePak
	}
	b.regionMap[0x0E] = regionSRAM
	b.regionMap[0x0F] = regionSRAM
}

// IO returns the IO units the bus routes to.
func (b *Bus) IO() *iodev.Devices {
	return b.io
}

func vramOffset(address uint32) uint32 {
	offset := address & 0x1FFFF
	if offset >= addr.VRAMSize {
		offset -= 0x8000
	}
	return offset
}

func (b *Bus) Read8(address uint32) uint8 {
	switch b.regionMap[address>>24] {
	case regionBIOS:
		if address < addr.BIOSSize {
			return b.bios[address]
		}
	case regionEWRAM:
		return b.ewram[address%addr.EWRAMSize]
	case regionIWRAM:
		return b.iwram[address%addr.IWRAMSize]
	case regionIO:
		if offset := address - addr.IOStart; offset < addr.IOSize {
			return b.io.Read8(offset)
		}
	case regionPalette:
		return b.io.GPU.PaletteRAM[address%addr.PaletteSize]
	case regionVRAM:
		return b.io.GPU.VRAM[vramOffset(address)]
	case regionOAM:
		return b.io.GPU.OAM[address%addr.OAMSize]
	case regionGamePak:
		return b.cart.ReadROM(address & 0x01FFFFFF)
	case regionSRAM:
		return b.cart.ReadSRAM(address)
	}

	slog.Debug("Read from unmapped address", "addr", fmt.Sprintf("0x%08X", address))
	return 0
}

func (b *Bus) Write8(address uint32, value uint8) {
	switch b.regionMap[address>>24] {
	case regionEWRAM:
		b.ewram[address%addr.EWRAMSize] = value
	case regionIWRAM:
		b.iwram[address%addr.IWRAMSize] = value
	case regionIO:
		if offset := address - addr.IOStart; offset < addr.IOSize {
			b.io.Write8(offset, value)
			return
		}
		b.unmappedWrite(address)
	case regionPalette:
		// byte writes land on both halves of the half-word
		offset := address % addr.PaletteSize &^ 1
		b.io.GPU.PaletteRAM[offset] = value
		b.io.GPU.PaletteRAM[offset+1] = value
	case regionVRAM:
		offset := vramOffset(address) &^ 1
		b.io.GPU.VRAM[offset] = value
		b.io.GPU.VRAM[offset+1] = value
	case regionOAM:
		// byte writes to OAM are ignored by the hardware
	case regionSRAM:
		b.cart.WriteSRAM(address, value)
	case regionBIOS, regionGamePak:
		// read-only
	default:
		b.unmappedWrite(address)
	}
}

func (b *Bus) unmappedWrite(address uint32) {
	slog.Debug("Write to unmapped address", "addr", fmt.Sprintf("0x%08X", address))
}

// Read16 reads an aligned little-endian half-word.
func (b *Bus) Read16(address uint32) uint16 {
	address &^= 1
	if b.regionMap[address>>24] == regionIO {
		if offset := address - addr.IOStart; offset < addr.IOSize {
			return b.io.Read16(offset)
		}
	}
	return uint16(b.Read8(address)) | uint16(b.Read8(address+1))<<8
}

// Write16 writes an aligned little-endian half-word.
func (b *Bus) Write16(address uint32, value uint16) {
	address &^= 1
	switch b.regionMap[address>>24] {
	case regionIO:
		if offset := address - addr.IOStart; offset < addr.IOSize {
			b.io.Write16(offset, value)
			return
		}
		b.unmappedWrite(address)
	case regionPalette:
		offset := address % addr.PaletteSize
		b.io.GPU.PaletteRAM[offset] = uint8(value)
		b.io.GPU.PaletteRAM[offset+1] = uint8(value >> 8)
	case regionVRAM:
		offset := vramOffset(address)
		b.io.GPU.VRAM[offset] = uint8(value)
		b.io.GPU.VRAM[offset+1] = uint8(value >> 8)
	case regionOAM:
		offset := address % addr.OAMSize
		b.io.GPU.OAM[offset] = uint8(value)
		b.io.GPU.OAM[offset+1] = uint8(value >> 8)
	default:
		b.Write8(address, uint8(value))
		b.Write8(address+1, uint8(value>>8))
	}
}

// Read32 reads an aligned little-endian word.
func (b *Bus) Read32(address uint32) uint32 {
	address &^= 3
	return uint32(b.Read16(address)) | uint32(b.Read16(address+2))<<16
}

// Write32 writes an aligned little-endian word.
func (b *Bus) Write32(address uint32, value uint32) {
	address &^= 3
	b.Write16(address, uint16(value))
	b.Write16(address+2, uint16(value>>16))
}

// AccessCycles returns the bus cycles taken by an access of the given width,
// using the power-on waitstate configuration.
func (b *Bus) AccessCycles(address uint32, width Width) int {
	switch b.regionMap[address>>24] {
	case regionEWRAM:
		if width == Word {
			return 6
		}
		return 3
	case regionPalette, regionVRAM:
		if width == Word {
			return 2
		}
		return 1
	case regionGamePak:
		if width == Word {
			return 8
		}
		return 5
	case regionSRAM:
		return 5
	default:
		return 1
	}
}
