package cartridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeROM(t *testing.T, size int) []byte {
	t.Helper()
	rom := make([]byte, size)
	copy(rom[titleAddress:], "ADVANCETEST")
	copy(rom[gameCodeAddress:], "AXTE")
	copy(rom[makerCodeAddress:], "01")
	rom[fixedValueAddress] = fixedValue
	rom[versionAddress] = 2
	rom[complementAddress] = HeaderComplement(rom)
	return rom
}

func TestNewWithData(t *testing.T) {
	t.Run("parses the header", func(t *testing.T) {
		cart, err := NewWithData(makeROM(t, 0x400))
		require.NoError(t, err)

		assert.Equal(t, "ADVANCETEST", cart.Header.Title)
		assert.Equal(t, "AXTE", cart.Header.GameCode)
		assert.Equal(t, "01", cart.Header.MakerCode)
		assert.Equal(t, uint8(2), cart.Header.Version)
		assert.NoError(t, cart.Validate())
		assert.Equal(t, 0x400, cart.Size())
	})

	t.Run("bad complement still loads", func(t *testing.T) {
		rom := makeROM(t, 0x400)
		rom[complementAddress]++

		cart, err := NewWithData(rom)
		require.NoError(t, err)
		assert.Error(t, cart.Validate())
	})

	t.Run("missing fixed value", func(t *testing.T) {
		rom := makeROM(t, 0x400)
		rom[fixedValueAddress] = 0

		cart, err := NewWithData(rom)
		require.NoError(t, err)
		assert.ErrorContains(t, cart.Validate(), "fixed value")
	})

	t.Run("too small", func(t *testing.T) {
		_, err := NewWithData(make([]byte, 0x10))
		assert.ErrorIs(t, err, ErrROMTooSmall)
	})
}

func TestReads(t *testing.T) {
	rom := makeROM(t, 0x200)
	rom[0x1FF] = 0xAB
	cart, err := NewWithData(rom)
	require.NoError(t, err)

	assert.Equal(t, uint8(0xAB), cart.ReadROM(0x1FF))

	// past the end the bus returns the half-word address
	assert.Equal(t, uint8(0x00), cart.ReadROM(0x200))
	assert.Equal(t, uint8(0x01), cart.ReadROM(0x201))
	assert.Equal(t, uint8(0x01), cart.ReadROM(0x202))

	cart.WriteSRAM(0x10, 0x5A)
	assert.Equal(t, uint8(0x5A), cart.ReadSRAM(0x10))
	assert.Equal(t, uint8(0x5A), cart.ReadSRAM(0x10010), "sram mirrors every 64KiB")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gba")
	require.NoError(t, os.WriteFile(path, makeROM(t, 0x400), 0o644))

	cart, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ADVANCETEST", cart.Header.Title)

	_, err = Load(filepath.Join(t.TempDir(), "missing.gba"))
	assert.Error(t, err)
}
