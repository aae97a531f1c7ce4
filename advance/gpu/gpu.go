package gpu

import (
	"encoding/binary"

	"github.com/valerio/go-advance/advance/addr"
	"github.com/valerio/go-advance/advance/bit"
	"github.com/valerio/go-advance/advance/interrupt"
	"github.com/valerio/go-advance/advance/video"
)

// State is the phase of the display refresh the scheduler can observe.
type State int

const (
	HDraw State = iota
	HBlank
	VBlank
)

func (s State) String() string {
	switch s {
	case HDraw:
		return "HDraw"
	case HBlank:
		return "HBlank"
	case VBlank:
		return "VBlank"
	default:
		return "Unknown"
	}
}

const (
	CyclesPerPixel = 4
	HDrawCycles    = video.FramebufferWidth * CyclesPerPixel // 960
	HBlankCycles   = 272
	ScanlineCycles = HDrawCycles + HBlankCycles // 1232

	VisibleLines = video.FramebufferHeight // 160
	VBlankLines  = 68
	TotalLines   = VisibleLines + VBlankLines // 228

	CyclesPerFrame = ScanlineCycles * TotalLines // 280896
)

// DISPSTAT bits
const (
	vblankFlag      uint8 = 0
	hblankFlag      uint8 = 1
	vcounterFlag    uint8 = 2
	vblankIRQEnable uint8 = 3
	hblankIRQEnable uint8 = 4
	vcountIRQEnable uint8 = 5
)

// DISPCNT bits
const (
	frameSelectBit uint8 = 4
	forcedBlankBit uint8 = 7
	bg2EnableBit   uint8 = 10
)

// GPU is the display controller: the scanline state machine, its registers
// and the video memories it owns.
type GPU struct {
	PaletteRAM []byte
	VRAM       []byte
	OAM        []byte

	framebuffer *video.FrameBuffer

	dispcnt  uint16
	dispstat uint16
	vcount   uint16

	state  State
	cycles int

	// inside the vertical blank the hblank flag still toggles every line
	vblankHBlank bool
}

// New returns a display controller at the start of line 0.
func New() *GPU {
	return &GPU{
		PaletteRAM:  make([]byte, addr.PaletteSize),
		VRAM:        make([]byte, addr.VRAMSize),
		OAM:         make([]byte, addr.OAMSize),
		framebuffer: video.NewFrameBuffer(),
		state:       HDraw,
	}
}

// State returns the current display phase.
func (g *GPU) State() State {
	return g.state
}

// Line returns the current scanline (VCOUNT).
func (g *GPU) Line() int {
	return int(g.vcount)
}

// Framebuffer returns the frame being rendered. Once the vblank is entered it
// holds the complete frame.
func (g *GPU) Framebuffer() *video.FrameBuffer {
	return g.framebuffer
}

// Step advances the display by the given amount of bus cycles. It adds any
// display interrupt to irqs and reports the last observable state entered,
// if the state changed during this step.
func (g *GPU) Step(cycles int, irqs *interrupt.Bitmask) (State, bool) {
	g.cycles += cycles

	changed := false
	for {
		next, moved, transition := g.advance(irqs)
		if !moved {
			break
		}
		if transition {
			g.state = next
			changed = true
		}
	}

	return g.state, changed
}

// advance consumes one phase worth of cycles if available. It returns the
// state that follows, whether a phase was consumed and whether the phase
// change is a visible state transition.
func (g *GPU) advance(irqs *interrupt.Bitmask) (State, bool, bool) {
	switch g.state {
	case HDraw:
		if g.cycles < HDrawCycles {
			return g.state, false, false
		}
		g.cycles -= HDrawCycles
		g.renderScanline()
		g.enterHBlank(irqs)
		return HBlank, true, true

	case HBlank:
		if g.cycles < HBlankCycles {
			return g.state, false, false
		}
		g.cycles -= HBlankCycles
		g.dispstat = bit.Clear16(hblankFlag, g.dispstat)
		g.setLine(g.vcount+1, irqs)

		if g.vcount == VisibleLines {
			g.dispstat = bit.Set16(vblankFlag, g.dispstat)
			if bit.IsSet16(vblankIRQEnable, g.dispstat) {
				irqs.Add(interrupt.VBlank)
			}
			return VBlank, true, true
		}
		return HDraw, true, true

	case VBlank:
		if !g.vblankHBlank {
			if g.cycles < HDrawCycles {
				return g.state, false, false
			}
			g.cycles -= HDrawCycles
			g.enterHBlank(irqs)
			g.vblankHBlank = true
			return VBlank, true, false
		}

		if g.cycles < HBlankCycles {
			return g.state, false, false
		}
		g.cycles -= HBlankCycles
		g.vblankHBlank = false
		g.dispstat = bit.Clear16(hblankFlag, g.dispstat)

		// the vblank flag drops on the last line, the state follows at line 0
		if g.vcount+1 == TotalLines-1 {
			g.dispstat = bit.Clear16(vblankFlag, g.dispstat)
		}

		if g.vcount+1 == TotalLines {
			g.setLine(0, irqs)
			return HDraw, true, true
		}
		g.setLine(g.vcount+1, irqs)
		return VBlank, true, false
	}

	return g.state, false, false
}

func (g *GPU) enterHBlank(irqs *interrupt.Bitmask) {
	g.dispstat = bit.Set16(hblankFlag, g.dispstat)
	if bit.IsSet16(hblankIRQEnable, g.dispstat) {
		irqs.Add(interrupt.HBlank)
	}
}

func (g *GPU) setLine(line uint16, irqs *interrupt.Bitmask) {
	g.vcount = line

	lyc := g.dispstat >> 8
	if g.vcount == lyc {
		g.dispstat = bit.Set16(vcounterFlag, g.dispstat)
		if bit.IsSet16(vcountIRQEnable, g.dispstat) {
			irqs.Add(interrupt.VCounterMatch)
		}
	} else {
		g.dispstat = bit.Clear16(vcounterFlag, g.dispstat)
	}
}

// Read16 reads a display register at the given offset from the IO base.
func (g *GPU) Read16(offset uint32) uint16 {
	switch offset {
	case 0x0:
		return g.dispcnt
	case 0x4:
		return g.dispstat
	case 0x6:
		return g.vcount
	default:
		return 0
	}
}

// Write16 writes a display register at the given offset from the IO base.
// The DISPSTAT status flags and VCOUNT are read-only.
func (g *GPU) Write16(offset uint32, value uint16) {
	switch offset {
	case 0x0:
		g.dispcnt = value
	case 0x4:
		g.dispstat = g.dispstat&0x0007 | value&0xFF38
	}
}

func (g *GPU) backdrop() uint32 {
	return video.BGR555ToRGBA(binary.LittleEndian.Uint16(g.PaletteRAM))
}
