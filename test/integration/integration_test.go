package integration

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-advance/advance"
	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/backend/capture"
	"github.com/valerio/go-advance/advance/backend/headless"
	"github.com/valerio/go-advance/advance/gpu"
	"github.com/valerio/go-advance/advance/iodev"
	"github.com/valerio/go-advance/advance/video"
)

// counterAddress is where the BIOS interrupt handler counts serviced IRQs.
const counterAddress = 0x03000000

// bios jumps to the cartridge on reset. Its IRQ handler acknowledges the
// vblank interrupt and increments the word at counterAddress.
var bios = program(map[uint32][]uint32{
	0x00: {0xE59FF020}, // ldr pc, [pc, #0x20]
	0x18: {0xEA000008}, // b 0x40
	0x28: {0x08000000},
	0x40: {
		0xE3A0C301, // mov r12, #0x04000000
		0xE28CCC02, // add r12, r12, #0x200
		0xE3A0B001, // mov r11, #1
		0xE38BB801, // orr r11, r11, #0x10000
		0xE58CB000, // str r11, [r12]       IE=vblank, acknowledge IF
		0xE3A0A403, // mov r10, #0x03000000
		0xE59A9000, // ldr r9, [r10]
		0xE2899001, // add r9, r9, #1
		0xE58A9000, // str r9, [r10]
		0xE25EF004, // subs pc, lr, #4
	},
}, 0x4000)

// enableVBlankIRQ leaves the CPU in system mode with the vblank interrupt
// enabled at every level and r0 pointing at the IO registers.
var enableVBlankIRQ = []uint32{
	0xE321F01F, // msr cpsr_c, #0x1F
	0xE3A00301, // mov r0, #0x04000000
	0xE3A01008, // mov r1, #8
	0xE5801004, // str r1, [r0, #4]      DISPSTAT vblank IRQ
	0xE3A01001, // mov r1, #1
	0xE5801200, // str r1, [r0, #0x200]  IE
	0xE5801208, // str r1, [r0, #0x208]  IME
}

func program(blocks map[uint32][]uint32, size int) []byte {
	image := make([]byte, size)
	for base, words := range blocks {
		for i, word := range words {
			binary.LittleEndian.PutUint32(image[base+uint32(i)*4:], word)
		}
	}
	return image
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func rom(code ...uint32) []byte {
	return program(map[uint32][]uint32{0: code}, 0x400)
}

func runFrames(t *testing.T, emu *advance.GameBoyAdvance, frames int) {
	t.Helper()
	for i := 0; i < frames; i++ {
		require.NoError(t, emu.Frame())
	}
}

func TestBackdropColour(t *testing.T) {
	romPath := writeFile(t, "backdrop.gba", rom(
		0xE3A00405, // mov r0, #0x05000000
		0xE3A0101F, // mov r1, #0x1F
		0xE5801000, // str r1, [r0]
		0xEAFFFFFE, // b .
	))

	be := capture.New()
	emu, err := advance.NewWithFiles("", romPath, be)
	require.NoError(t, err)

	runFrames(t, emu, 2)

	require.Equal(t, 2, be.PresentCount())
	frame := be.LastFrame()
	red := video.BGR555ToRGBA(0x001F)
	assert.Equal(t, red, frame.GetPixel(0, 0))
	assert.Equal(t, red, frame.GetPixel(video.FramebufferWidth-1, video.FramebufferHeight-1))
	assert.GreaterOrEqual(t, emu.CPU().Cycles(), uint64(2*gpu.CyclesPerFrame))
}

func TestVBlankInterrupts(t *testing.T) {
	tests := []struct {
		name     string
		mainLoop []uint32
		wantHalt iodev.HaltState
		frames   int
	}{
		{
			name:     "busy loop",
			mainLoop: []uint32{0xEAFFFFFE}, // b .
			wantHalt: iodev.Running,
			frames:   5,
		},
		{
			name: "halt between interrupts",
			mainLoop: []uint32{
				0xE3A02000, // mov r2, #0
				0xE5C02301, // strb r2, [r0, #0x301]  HALTCNT
				0xEAFFFFFD, // b -8
			},
			wantHalt: iodev.Halted,
			frames:   5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			biosPath := writeFile(t, "bios.bin", bios)
			romPath := writeFile(t, "irq.gba", rom(append(append([]uint32{}, enableVBlankIRQ...), tt.mainLoop...)...))

			be := capture.New()
			emu, err := advance.NewWithFiles(biosPath, romPath, be)
			require.NoError(t, err)

			runFrames(t, emu, tt.frames)

			assert.Equal(t, uint32(tt.frames), emu.Bus().Read32(counterAddress))
			assert.Equal(t, tt.wantHalt, emu.IO().HaltCnt)
			assert.Equal(t, uint64(tt.frames), emu.FrameCount())
			assert.Equal(t, tt.frames, be.PresentCount())
		})
	}
}

func TestHeadlessSnapshots(t *testing.T) {
	romPath := writeFile(t, "snap.gba", rom(0xEAFFFFFE))
	snapshotDir := t.TempDir()

	snapshots, err := headless.CreateSnapshotConfig(2, snapshotDir, romPath)
	require.NoError(t, err)

	be := headless.New(4, snapshots)
	emu, err := advance.NewWithFiles("", romPath, be)
	require.NoError(t, err)

	done := false
	require.NoError(t, be.Init(backend.Config{Callbacks: backend.Callbacks{OnQuit: func() { done = true }}}))

	for !done {
		require.NoError(t, emu.Frame())
	}

	assert.Equal(t, 4, be.FrameCount())
	assert.Equal(t, uint64(4), emu.FrameCount())
	require.Len(t, be.Snapshots(), 2)
	for _, path := range be.Snapshots() {
		assert.FileExists(t, path)
		assert.Equal(t, snapshotDir, filepath.Dir(path))
	}
}
