package backend

import (
	"github.com/valerio/go-advance/advance/debug"
	"github.com/valerio/go-advance/advance/input"
	"github.com/valerio/go-advance/advance/keypad"
	"github.com/valerio/go-advance/advance/video"
)

// Backend is the platform the emulator presents frames to and polls keys
// from. The scheduler calls Present exactly once per frame, at the start of
// the vertical blank, and KeyState once at the start of every frame.
type Backend interface {
	// Init configures the backend. It must be called before Present.
	Init(config Config) error

	// KeyState returns the buttons currently held, in KEYINPUT format.
	KeyState() keypad.KeyState

	// Present shows a completed frame and processes platform events.
	// An error stops the emulation.
	Present(frame *video.FrameBuffer) error

	// Cleanup releases platform resources.
	Cleanup() error
}

// Config holds configuration for backends
type Config struct {
	Title        string
	Scale        int
	ShowDebug    bool           // backends may ignore unsupported features
	Callbacks    Callbacks      // callbacks for backend communication
	InputManager *input.Manager // shared input manager; nil gets a private one

	// DebugProvider feeds the register and disassembly panes, when supported.
	DebugProvider DebugDataProvider
}

// DebugDataProvider exposes emulator state to debug displays.
type DebugDataProvider interface {
	ExtractDebugData() *debug.CompleteDebugData
}

// Callbacks allows backends to communicate with the emulator
type Callbacks struct {
	// OnQuit is called when the backend requests shutdown (window close,
	// frame limit reached, signal).
	OnQuit func()
}

// Quit invokes OnQuit if set.
func (c Callbacks) Quit() {
	if c.OnQuit != nil {
		c.OnQuit()
	}
}

// ManagerOrNew returns the configured input manager, or a new one.
func (c Config) ManagerOrNew() *input.Manager {
	if c.InputManager != nil {
		return c.InputManager
	}
	return input.NewManager()
}
