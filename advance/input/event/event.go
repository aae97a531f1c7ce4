package event

// Type represents the type of input event
type Type int

const (
	Press   Type = iota // button pressed down
	Release             // button released
	Hold                // continuous while pressed, never debounced
)

func (t Type) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	case Hold:
		return "hold"
	default:
		return "unknown"
	}
}
