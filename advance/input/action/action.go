package action

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// console buttons
	ButtonA Action = iota
	ButtonB
	ButtonSelect
	ButtonStart
	DPadRight
	DPadLeft
	DPadUp
	DPadDown
	ButtonR
	ButtonL

	// emulator features
	EmulatorSnapshot
	EmulatorPauseToggle
	EmulatorStepFrame
	EmulatorQuit
)

// Category groups actions by who consumes them.
type Category int

const (
	CategoryGameInput Category = iota
	CategoryEmulator
)

// Info describes an action for logs and help screens.
type Info struct {
	Description string
	Category    Category
}

var infos = map[Action]Info{
	ButtonA:             {"A", CategoryGameInput},
	ButtonB:             {"B", CategoryGameInput},
	ButtonSelect:        {"Select", CategoryGameInput},
	ButtonStart:         {"Start", CategoryGameInput},
	DPadRight:           {"Right", CategoryGameInput},
	DPadLeft:            {"Left", CategoryGameInput},
	DPadUp:              {"Up", CategoryGameInput},
	DPadDown:            {"Down", CategoryGameInput},
	ButtonR:             {"R", CategoryGameInput},
	ButtonL:             {"L", CategoryGameInput},
	EmulatorSnapshot:    {"Snapshot", CategoryEmulator},
	EmulatorPauseToggle: {"Pause", CategoryEmulator},
	EmulatorStepFrame:   {"Step frame", CategoryEmulator},
	EmulatorQuit:        {"Quit", CategoryEmulator},
}

// GetInfo returns the description of act.
func GetInfo(act Action) Info {
	if info, ok := infos[act]; ok {
		return info
	}
	return Info{Description: "Unknown", Category: CategoryEmulator}
}

func (a Action) String() string {
	return GetInfo(a).Description
}
