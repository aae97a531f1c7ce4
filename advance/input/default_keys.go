package input

import "github.com/valerio/go-advance/advance/input/action"

// DefaultKeyMap maps key names to actions. Backends translate their own key
// codes to these names.
var DefaultKeyMap = map[string]action.Action{
	"z":         action.ButtonA,
	"x":         action.ButtonB,
	"Enter":     action.ButtonStart,
	"Backspace": action.ButtonSelect,
	"Up":        action.DPadUp,
	"Down":      action.DPadDown,
	"Left":      action.DPadLeft,
	"Right":     action.DPadRight,
	"a":         action.ButtonL,
	"s":         action.ButtonR,

	"Space":  action.EmulatorPauseToggle,
	"p":      action.EmulatorPauseToggle,
	"f":      action.EmulatorStepFrame,
	"F9":     action.EmulatorSnapshot,
	"Escape": action.EmulatorQuit,
	"q":      action.EmulatorQuit,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
