//go:build !sdl2

package sdl2

import (
	"github.com/pkg/errors"

	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/keypad"
	"github.com/valerio/go-advance/advance/video"
)

// ErrUnavailable is returned by Init when the binary was built without SDL2.
var ErrUnavailable = errors.New("SDL2 backend not available - build with -tags sdl2 to enable")

// Backend stub for when SDL2 is not available
type Backend struct{}

// New creates a stub SDL2 backend that returns an error
func New() *Backend {
	return &Backend{}
}

// Init returns ErrUnavailable.
func (s *Backend) Init(backend.Config) error {
	return ErrUnavailable
}

// KeyState reports no buttons held.
func (s *Backend) KeyState() keypad.KeyState {
	return keypad.Released
}

// Present returns ErrUnavailable.
func (s *Backend) Present(*video.FrameBuffer) error {
	return ErrUnavailable
}

// Cleanup does nothing
func (s *Backend) Cleanup() error {
	return nil
}
