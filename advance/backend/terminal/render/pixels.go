package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-advance/advance/video"
)

// Columns is the width of the frame in terminal cells: two pixels per cell.
const Columns = video.FramebufferWidth / 2

// Rows is the height of the frame in terminal cells: two lines per cell.
const Rows = video.FramebufferHeight / 2

// Color converts an RGBA8888 pixel to a terminal colour.
func Color(pixel uint32) tcell.Color {
	return tcell.NewRGBColor(int32(pixel>>24), int32(pixel>>16&0xFF), int32(pixel>>8&0xFF))
}

// blend averages two RGBA8888 pixels channel by channel.
func blend(a, b uint32) uint32 {
	var out uint32
	for shift := 8; shift < 32; shift += 8 {
		ca := (a >> shift) & 0xFF
		cb := (b >> shift) & 0xFF
		out |= ((ca + cb) / 2) << shift
	}
	return out | 0xFF
}

// Cell returns the upper and lower colour of the terminal cell at column x
// and row y. Each half averages two horizontally adjacent pixels.
func Cell(frame *video.FrameBuffer, x, y int) (top, bottom uint32) {
	px := x * 2
	py := y * 2
	top = blend(frame.GetPixel(px, py), frame.GetPixel(px+1, py))
	bottom = blend(frame.GetPixel(px, py+1), frame.GetPixel(px+1, py+1))
	return top, bottom
}

// HalfBlock returns the glyph and style drawing two stacked pixels in one cell.
func HalfBlock(top, bottom uint32) (rune, tcell.Style) {
	if top == bottom {
		return '█', tcell.StyleDefault.Foreground(Color(top))
	}
	return '▀', tcell.StyleDefault.Foreground(Color(top)).Background(Color(bottom))
}
