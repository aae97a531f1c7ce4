package video

const (
	FramebufferWidth  = 240
	FramebufferHeight = 160
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// Pixels are stored as RGBA8888, red in the most significant byte.
const (
	BlackColor uint32 = 0x000000FF
	WhiteColor uint32 = 0xFFFFFFFF
)

// FrameBuffer is the 240x160 output of the display controller.
type FrameBuffer struct {
	buffer []uint32
}

// NewFrameBuffer creates a black frame buffer.
func NewFrameBuffer() *FrameBuffer {
	fb := &FrameBuffer{
		buffer: make([]uint32, FramebufferSize),
	}
	fb.Fill(BlackColor)
	return fb
}

func (fb *FrameBuffer) GetPixel(x, y int) uint32 {
	return fb.buffer[y*FramebufferWidth+x]
}

func (fb *FrameBuffer) SetPixel(x, y int, color uint32) {
	fb.buffer[y*FramebufferWidth+x] = color
}

// Fill sets every pixel to color.
func (fb *FrameBuffer) Fill(color uint32) {
	for i := range fb.buffer {
		fb.buffer[i] = color
	}
}

// Clone returns a copy that is not affected by later rendering.
func (fb *FrameBuffer) Clone() *FrameBuffer {
	c := &FrameBuffer{buffer: make([]uint32, len(fb.buffer))}
	copy(c.buffer, fb.buffer)
	return c
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// BGR555ToRGBA converts a 15 bit colour as stored in palette RAM and VRAM.
func BGR555ToRGBA(color uint16) uint32 {
	r := uint32(color & 0x1F)
	g := uint32((color >> 5) & 0x1F)
	b := uint32((color >> 10) & 0x1F)

	// expand 5 bit channels to 8 bits, replicating the top bits into the bottom
	r = r<<3 | r>>2
	g = g<<3 | g>>2
	b = b<<3 | b>>2

	return r<<24 | g<<16 | b<<8 | 0xFF
}
