package timing

import (
	"context"
	"fmt"
	"time"
)

// Limiter paces the emulation to the console frame rate.
type Limiter interface {
	// WaitForNextFrame blocks until the next frame is due or ctx is done.
	// It returns at once when running behind schedule.
	WaitForNextFrame(ctx context.Context) error

	// Reset restarts the schedule from now, used after pauses.
	Reset()
}

// console timing
const (
	CyclesPerFrame = 280896
	CPUFrequency   = 16 * 1024 * 1024
)

// TargetFPS is the console refresh rate, slightly below 60Hz.
func TargetFPS() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame(ctx context.Context) error { return ctx.Err() }
func (noOpLimiter) Reset()                                     {}

// New returns the limiter named by kind: "adaptive", "ticker" or "none".
func New(kind string) (Limiter, error) {
	switch kind {
	case "", "adaptive":
		return NewAdaptiveLimiter(), nil
	case "ticker":
		return NewTickerLimiter(), nil
	case "none":
		return NewNoOpLimiter(), nil
	default:
		return nil, fmt.Errorf("unknown frame pacing %q", kind)
	}
}
