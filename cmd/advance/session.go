package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/valerio/go-advance/advance"
	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/debug"
	"github.com/valerio/go-advance/advance/input"
	"github.com/valerio/go-advance/advance/input/action"
	"github.com/valerio/go-advance/advance/input/event"
	"github.com/valerio/go-advance/advance/timing"
)

// session drives the emulator frame by frame and applies the pause and
// single-frame controls coming from the input manager.
type session struct {
	emu     *advance.GameBoyAdvance
	backend backend.Backend
	limiter timing.Limiter

	paused    atomic.Bool
	stepFrame atomic.Bool
}

func newSession(emu *advance.GameBoyAdvance, be backend.Backend, limiter timing.Limiter, manager *input.Manager) *session {
	s := &session{emu: emu, backend: be, limiter: limiter}

	manager.On(action.EmulatorPauseToggle, event.Press, func() {
		paused := !s.paused.Load()
		s.paused.Store(paused)
		slog.Info("Pause toggled", "paused", paused)
	})
	manager.On(action.EmulatorStepFrame, event.Press, func() {
		s.paused.Store(true)
		s.stepFrame.Store(true)
	})
	return s
}

func (s *session) state() debug.DebuggerState {
	switch {
	case s.stepFrame.Load():
		return debug.DebuggerStepFrame
	case s.paused.Load():
		return debug.DebuggerPaused
	default:
		return debug.DebuggerRunning
	}
}

// ExtractDebugData adds the session state to the emulator debug data.
func (s *session) ExtractDebugData() *debug.CompleteDebugData {
	data := s.emu.ExtractDebugData()
	if data != nil {
		data.DebuggerState = s.state()
	}
	return data
}

// run emulates frames until ctx is cancelled or the emulator fails.
func (s *session) run(ctx context.Context) error {
	for ctx.Err() == nil {
		if s.paused.Load() && !s.stepFrame.Swap(false) {
			// keep the backend polling input while nothing runs
			if err := s.backend.Present(s.emu.IO().GPU.Framebuffer()); err != nil {
				return fmt.Errorf("failed to present frame: %w", err)
			}
		} else if err := s.frame(); err != nil {
			return err
		}

		if err := s.limiter.WaitForNextFrame(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *session) frame() error {
	if len(s.emu.CPU().Breakpoints()) == 0 {
		return s.emu.Frame()
	}

	address, hit, err := s.emu.FrameOrBreakpoint()
	if err != nil {
		return err
	}
	if hit {
		s.paused.Store(true)
		slog.Info("Breakpoint hit", "address", fmt.Sprintf("0x%08X", address), "cycles", s.emu.CPU().Cycles())
	}
	return nil
}
