package input

import (
	"sync"
	"time"

	"github.com/valerio/go-advance/advance/input/action"
	"github.com/valerio/go-advance/advance/input/event"
	"github.com/valerio/go-advance/advance/keypad"
)

const (
	// debounceDuration is the minimum time between two presses of the same
	// emulator action
	debounceDuration = 300 * time.Millisecond
)

// Manager turns actions into keypad state and emulator callbacks. Backends
// feed it from their event loop; the emulator polls KeyState once per frame.
type Manager struct {
	mu            sync.Mutex
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]time.Time
	keys          keypad.KeyState
	debounce      time.Duration
	now           func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]time.Time),
		keys:          keypad.Released,
		debounce:      debounceDuration,
		now:           time.Now,
	}
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}
	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type. Console buttons update the
// key state; emulator actions run their callbacks, with presses debounced.
func (m *Manager) Trigger(act action.Action, evt event.Type) {
	m.mu.Lock()

	if key, ok := keyFor(act); ok {
		switch evt {
		case event.Press, event.Hold:
			m.keys.Press(key)
		case event.Release:
			m.keys.Release(key)
		}
		m.mu.Unlock()
		return
	}

	if evt == event.Press {
		now := m.now()
		if last, ok := m.lastTriggered[act]; ok && now.Sub(last) < m.debounce {
			m.mu.Unlock()
			return
		}
		m.lastTriggered[act] = now
	}

	callbacks := append([]func(){}, m.handlers[act][evt]...)
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

// KeyState returns the current key state in KEYINPUT format.
func (m *Manager) KeyState() keypad.KeyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys
}

// ReleaseAll releases every console button.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = keypad.Released
}

func keyFor(act action.Action) (keypad.Key, bool) {
	switch act {
	case action.ButtonA:
		return keypad.A, true
	case action.ButtonB:
		return keypad.B, true
	case action.ButtonSelect:
		return keypad.Select, true
	case action.ButtonStart:
		return keypad.Start, true
	case action.DPadRight:
		return keypad.Right, true
	case action.DPadLeft:
		return keypad.Left, true
	case action.DPadUp:
		return keypad.Up, true
	case action.DPadDown:
		return keypad.Down, true
	case action.ButtonR:
		return keypad.R, true
	case action.ButtonL:
		return keypad.L, true
	default:
		return 0, false
	}
}
