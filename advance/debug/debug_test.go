package debug

import (
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-advance/advance/video"
)

func TestFrameImage(t *testing.T) {
	frame := video.NewFrameBuffer()
	frame.SetPixel(3, 2, 0x11223344)

	img := FrameImage(frame)
	assert.Equal(t, video.FramebufferWidth, img.Bounds().Dx())
	assert.Equal(t, video.FramebufferHeight, img.Bounds().Dy())

	c := img.RGBAAt(3, 2)
	assert.Equal(t, uint8(0x11), c.R)
	assert.Equal(t, uint8(0x22), c.G)
	assert.Equal(t, uint8(0x33), c.B)
	assert.Equal(t, uint8(0x44), c.A)

	black := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(0), black.R)
	assert.Equal(t, uint8(0xFF), black.A)
}

func TestSaveFramePNGToDir(t *testing.T) {
	dir := t.TempDir()
	frame := video.NewFrameBuffer()
	frame.Fill(video.WhiteColor)

	path, err := SaveFramePNGToDir(frame, "test", dir)
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	r, g, b, a := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xFFFF), r)
	assert.Equal(t, uint32(0xFFFF), g)
	assert.Equal(t, uint32(0xFFFF), b)
	assert.Equal(t, uint32(0xFFFF), a)
}

func TestScaleImage(t *testing.T) {
	frame := video.NewFrameBuffer()
	frame.SetPixel(1, 0, 0xFF0000FF)

	img := FrameImage(frame)
	assert.Same(t, img, ScaleImage(img, 1))

	scaled := ScaleImage(img, 3)
	assert.Equal(t, video.FramebufferWidth*3, scaled.Bounds().Dx())
	assert.Equal(t, video.FramebufferHeight*3, scaled.Bounds().Dy())
	for x := 3; x < 6; x++ {
		assert.Equal(t, uint8(0xFF), scaled.RGBAAt(x, 2).R)
	}
	assert.Equal(t, uint8(0), scaled.RGBAAt(2, 2).R)
	assert.Equal(t, uint8(0), scaled.RGBAAt(6, 0).R)
}

func TestSaveScaledFramePNGToDir(t *testing.T) {
	path, err := SaveScaledFramePNGToDir(video.NewFrameBuffer(), "scaled", t.TempDir(), 2)
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	cfg, err := png.DecodeConfig(file)
	require.NoError(t, err)
	assert.Equal(t, video.FramebufferWidth*2, cfg.Width)
	assert.Equal(t, video.FramebufferHeight*2, cfg.Height)
}

func TestFormatRegisters(t *testing.T) {
	state := &CPUState{CPSR: 0x6000001F, Mode: "sys", Cycles: 42}
	state.Registers[15] = 0x08000000

	lines := state.FormatRegisters()
	require.Len(t, lines, 5)
	assert.Contains(t, lines[3], "PC  08000000")
	assert.Equal(t, "CPSR 6000001F [-ZC-] sys cycles=42", lines[4])
}
