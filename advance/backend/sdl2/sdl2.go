//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/debug"
	"github.com/valerio/go-advance/advance/input"
	"github.com/valerio/go-advance/advance/input/action"
	"github.com/valerio/go-advance/advance/input/event"
	"github.com/valerio/go-advance/advance/keypad"
	"github.com/valerio/go-advance/advance/video"
)

const defaultScale = 3

// Backend implements the Backend interface using SDL2 bindings
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use a stubbed renderer, see build tags (sdl2)
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	config   backend.Config
	manager  *input.Manager

	currentFrame *video.FrameBuffer
}

// New creates a new SDL2 backend
func New() *Backend {
	return &Backend{}
}

// Init initializes the SDL2 backend
func (s *Backend) Init(config backend.Config) error {
	s.config = config
	s.manager = config.ManagerOrNew()

	scale := config.Scale
	if scale <= 0 {
		scale = defaultScale
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}

	window, err := sdl.CreateWindow(
		config.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(video.FramebufferWidth*scale),
		int32(video.FramebufferHeight*scale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("failed to create window: %w", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.FramebufferWidth,
		video.FramebufferHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create texture: %w", err)
	}
	s.texture = texture

	s.manager.On(action.EmulatorSnapshot, event.Press, func() {
		debug.TakeSnapshot(s.currentFrame)
	})
	s.manager.On(action.EmulatorQuit, event.Press, s.config.Callbacks.Quit)

	slog.Info("SDL2 backend initialized", "scale", scale)
	return nil
}

// KeyState returns the buttons held according to the input manager.
func (s *Backend) KeyState() keypad.KeyState {
	return s.manager.KeyState()
}

// Present processes window events and draws the frame.
func (s *Backend) Present(frame *video.FrameBuffer) error {
	s.currentFrame = frame

	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		s.handleEvent(ev)
	}

	// the frame is packed RGBA8888 words, which is the texture's native layout
	pixels := frame.ToSlice()
	if err := s.texture.Update(nil, unsafe.Pointer(&pixels[0]), video.FramebufferWidth*4); err != nil {
		return fmt.Errorf("failed to update texture: %w", err)
	}

	if err := s.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear renderer: %w", err)
	}
	if err := s.renderer.Copy(s.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy texture: %w", err)
	}
	s.renderer.Present()
	return nil
}

// Cleanup cleans up SDL2 resources
func (s *Backend) Cleanup() error {
	slog.Info("Cleaning up SDL2 backend")

	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}

// keyNames maps SDL2 keys to key names used in default mappings
var keyNames = map[sdl.Keycode]string{
	sdl.K_z:         "z",
	sdl.K_x:         "x",
	sdl.K_a:         "a",
	sdl.K_s:         "s",
	sdl.K_p:         "p",
	sdl.K_f:         "f",
	sdl.K_q:         "q",
	sdl.K_RETURN:    "Enter",
	sdl.K_BACKSPACE: "Backspace",
	sdl.K_UP:        "Up",
	sdl.K_DOWN:      "Down",
	sdl.K_LEFT:      "Left",
	sdl.K_RIGHT:     "Right",
	sdl.K_SPACE:     "Space",
	sdl.K_ESCAPE:    "Escape",
	sdl.K_F9:        "F9",
}

func (s *Backend) handleEvent(ev sdl.Event) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		s.config.Callbacks.Quit()

	case *sdl.KeyboardEvent:
		name, ok := keyNames[e.Keysym.Sym]
		if !ok {
			return
		}
		act, ok := input.GetDefaultMapping(name)
		if !ok {
			return
		}

		switch {
		case e.Type == sdl.KEYDOWN && e.Repeat == 0:
			s.manager.Trigger(act, event.Press)
		case e.Type == sdl.KEYUP && action.GetInfo(act).Category == action.CategoryGameInput:
			s.manager.Trigger(act, event.Release)
		}
	}
}
