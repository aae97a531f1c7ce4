package gpu

import (
	"encoding/binary"

	"github.com/valerio/go-advance/advance/bit"
	"github.com/valerio/go-advance/advance/video"
)

const (
	mode3 = 3
	mode4 = 4
	mode5 = 5

	// second bitmap page for modes 4 and 5
	pageOffset = 0xA000

	mode5Width  = 160
	mode5Height = 128
)

// renderScanline draws the current line into the framebuffer. Only the
// bitmap modes are drawn, tiled modes show the backdrop colour.
func (g *GPU) renderScanline() {
	y := int(g.vcount)
	if y >= video.FramebufferHeight {
		return
	}

	if bit.IsSet16(forcedBlankBit, g.dispcnt) {
		g.fillLine(y, video.WhiteColor)
		return
	}

	if !bit.IsSet16(bg2EnableBit, g.dispcnt) {
		g.fillLine(y, g.backdrop())
		return
	}

	page := 0
	if bit.IsSet16(frameSelectBit, g.dispcnt) {
		page = pageOffset
	}

	switch g.dispcnt & 0x7 {
	case mode3:
		for x := 0; x < video.FramebufferWidth; x++ {
			offset := (y*video.FramebufferWidth + x) * 2
			g.framebuffer.SetPixel(x, y, video.BGR555ToRGBA(binary.LittleEndian.Uint16(g.VRAM[offset:])))
		}
	case mode4:
		for x := 0; x < video.FramebufferWidth; x++ {
			index := int(g.VRAM[page+y*video.FramebufferWidth+x])
			g.framebuffer.SetPixel(x, y, video.BGR555ToRGBA(binary.LittleEndian.Uint16(g.PaletteRAM[index*2:])))
		}
	case mode5:
		backdrop := g.backdrop()
		for x := 0; x < video.FramebufferWidth; x++ {
			if x >= mode5Width || y >= mode5Height {
				g.framebuffer.SetPixel(x, y, backdrop)
				continue
			}
			offset := page + (y*mode5Width+x)*2
			g.framebuffer.SetPixel(x, y, video.BGR555ToRGBA(binary.LittleEndian.Uint16(g.VRAM[offset:])))
		}
	default:
		g.fillLine(y, g.backdrop())
	}
}

func (g *GPU) fillLine(y int, color uint32) {
	for x := 0; x < video.FramebufferWidth; x++ {
		g.framebuffer.SetPixel(x, y, color)
	}
}
