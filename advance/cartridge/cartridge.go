package cartridge

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/valerio/go-advance/advance/addr"
)

const (
	headerSize = 0xC0

	titleAddress         = 0xA0
	titleLength          = 12
	gameCodeAddress      = 0xAC
	gameCodeLength       = 4
	makerCodeAddress     = 0xB0
	makerCodeLength      = 2
	fixedValueAddress    = 0xB2
	versionAddress       = 0xBC
	complementAddress    = 0xBD
	complementRangeStart = 0xA0
	complementRangeEnd   = 0xBC

	fixedValue = 0x96

	// MaxROMSize is the size of the game pak ROM address window.
	MaxROMSize = 32 * 1024 * 1024
)

var (
	ErrROMTooSmall = errors.New("rom smaller than the cartridge header")
	ErrROMTooLarge = errors.New("rom larger than 32MiB")
)

// Header is the metadata at the start of every game pak.
type Header struct {
	Title      string
	GameCode   string
	MakerCode  string
	Version    uint8
	Complement uint8
	FixedValue uint8
}

// Cartridge is a game pak: its ROM image and the SRAM backup.
type Cartridge struct {
	Header Header

	rom  []byte
	sram []byte
}

// New creates an empty cartridge, useful only for debugging purposes.
func New() *Cartridge {
	return &Cartridge{
		rom:  make([]byte, headerSize),
		sram: make([]byte, addr.SRAMSize),
	}
}

// NewWithData initializes a new Cartridge from a ROM image.
func NewWithData(data []byte) (*Cartridge, error) {
	if len(data) < headerSize {
		return nil, ErrROMTooSmall
	}
	if len(data) > MaxROMSize {
		return nil, ErrROMTooLarge
	}

	cart := &Cartridge{
		Header: Header{
			Title:      cleanString(data[titleAddress : titleAddress+titleLength]),
			GameCode:   cleanString(data[gameCodeAddress : gameCodeAddress+gameCodeLength]),
			MakerCode:  cleanString(data[makerCodeAddress : makerCodeAddress+makerCodeLength]),
			Version:    data[versionAddress],
			Complement: data[complementAddress],
			FixedValue: data[fixedValueAddress],
		},
		rom:  make([]byte, len(data)),
		sram: make([]byte, addr.SRAMSize),
	}
	copy(cart.rom, data)

	if err := cart.Validate(); err != nil {
		slog.Warn("Cartridge header is not valid", "title", cart.Header.Title, "error", err)
	}

	return cart, nil
}

// Load reads a ROM image from disk.
func Load(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rom: %w", err)
	}

	cart, err := NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rom %s: %w", path, err)
	}

	slog.Info("Loaded cartridge",
		"title", cart.Header.Title,
		"code", cart.Header.GameCode,
		"size", len(data))

	return cart, nil
}

// Validate checks the fixed header byte and the header complement.
func (c *Cartridge) Validate() error {
	if c.Header.FixedValue != fixedValue {
		return fmt.Errorf("fixed value is %#02x, expected %#02x", c.Header.FixedValue, fixedValue)
	}

	if sum := HeaderComplement(c.rom); sum != c.Header.Complement {
		return fmt.Errorf("header complement is %#02x, computed %#02x", c.Header.Complement, sum)
	}

	return nil
}

// HeaderComplement computes the complement check over bytes 0xA0-0xBC.
func HeaderComplement(rom []byte) uint8 {
	var sum uint8
	for _, b := range rom[complementRangeStart:complementRangeEnd+1] {
		sum -= b
	}
	return sum - 0x19
}

// Size returns the ROM size in bytes.
func (c *Cartridge) Size() int {
	return len(c.rom)
}

// ReadROM reads a byte at the given offset into the ROM. Reads past the end
// of the image return the open bus pattern (the low byte of the half-word
// address).
func (c *Cartridge) ReadROM(offset uint32) uint8 {
	if int(offset) < len(c.rom) {
		return c.rom[offset]
	}
	return uint8(offset >> 1 >> ((offset & 1) * 8))
}

// ReadSRAM reads a byte of backup memory.
func (c *Cartridge) ReadSRAM(offset uint32) uint8 {
	return c.sram[offset%addr.SRAMSize]
}

// WriteSRAM writes a byte of backup memory.
func (c *Cartridge) WriteSRAM(offset uint32, value uint8) {
	c.sram[offset%addr.SRAMSize] = value
}

func cleanString(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}
