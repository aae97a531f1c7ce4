// Package capture provides a backend that records presented frames and serves
// scripted key states, for tests and tools that drive the emulator directly.
package capture

import (
	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/keypad"
	"github.com/valerio/go-advance/advance/video"
)

// Backend records every presented frame.
type Backend struct {
	frames   []*video.FrameBuffer
	keys     []keypad.KeyState
	keyPolls int

	// PresentErr, when set, is returned by every Present call.
	PresentErr error

	// OnPresent is called after a frame has been recorded.
	OnPresent func(frame *video.FrameBuffer)

	initialized bool
	cleanedUp   bool
}

var _ backend.Backend = (*Backend)(nil)

// New returns a capture backend. Each KeyState poll returns the next of keys;
// the last one repeats, and with no keys every button is released.
func New(keys ...keypad.KeyState) *Backend {
	return &Backend{keys: keys}
}

func (b *Backend) Init(backend.Config) error {
	b.initialized = true
	return nil
}

func (b *Backend) KeyState() keypad.KeyState {
	defer func() { b.keyPolls++ }()

	if len(b.keys) == 0 {
		return keypad.Released
	}
	if b.keyPolls < len(b.keys) {
		return b.keys[b.keyPolls]
	}
	return b.keys[len(b.keys)-1]
}

func (b *Backend) Present(frame *video.FrameBuffer) error {
	if b.PresentErr != nil {
		return b.PresentErr
	}

	b.frames = append(b.frames, frame.Clone())
	if b.OnPresent != nil {
		b.OnPresent(frame)
	}
	return nil
}

func (b *Backend) Cleanup() error {
	b.cleanedUp = true
	return nil
}

// Frames returns copies of the presented frames, oldest first.
func (b *Backend) Frames() []*video.FrameBuffer {
	return b.frames
}

// PresentCount returns how many frames were presented.
func (b *Backend) PresentCount() int {
	return len(b.frames)
}

// LastFrame returns the most recent frame, or nil.
func (b *Backend) LastFrame() *video.FrameBuffer {
	if len(b.frames) == 0 {
		return nil
	}
	return b.frames[len(b.frames)-1]
}

// KeyPolls returns how many times the key state was read.
func (b *Backend) KeyPolls() int {
	return b.keyPolls
}

// Initialized reports whether Init was called.
func (b *Backend) Initialized() bool {
	return b.initialized
}

// CleanedUp reports whether Cleanup was called.
func (b *Backend) CleanedUp() bool {
	return b.cleanedUp
}
