package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/valerio/go-advance/advance"
	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/backend/headless"
	"github.com/valerio/go-advance/advance/backend/sdl2"
	"github.com/valerio/go-advance/advance/backend/terminal"
	"github.com/valerio/go-advance/advance/input"
	"github.com/valerio/go-advance/advance/profiling"
	"github.com/valerio/go-advance/advance/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "advance"
	app.Description = "A Game Boy Advance emulator"
	app.Usage = "advance [options] <ROM file>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "bios",
			Usage: "Path to a BIOS image (default: start at the cartridge entry point)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.IntFlag{
			Name:  "snapshot-scale",
			Usage: "Enlarge saved snapshots by this integer factor",
			Value: 1,
		},
		cli.StringSliceFlag{
			Name:  "breakpoint",
			Usage: "Pause before executing the instruction at this hex address (repeatable)",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend: terminal or sdl2",
			Value: "terminal",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor for the sdl2 backend",
			Value: 3,
		},
		cli.StringFlag{
			Name:  "pacing",
			Usage: "Frame pacing: adaptive, ticker or none",
			Value: "adaptive",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Show the CPU debug panel",
		},
		cli.BoolFlag{
			Name:  "statsview",
			Usage: "Serve live runtime charts while running",
		},
		cli.StringFlag{
			Name:  "statsview-addr",
			Usage: "Listen address for the runtime charts",
			Value: profiling.DefaultAddr,
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	breakpoints, err := parseBreakpoints(c.StringSlice("breakpoint"))
	if err != nil {
		return err
	}

	be, limiter, err := selectBackend(c, romPath)
	if err != nil {
		return err
	}

	emu, err := advance.NewWithFiles(c.String("bios"), romPath, be)
	if err != nil {
		return err
	}
	for _, bp := range breakpoints {
		emu.AddBreakpoint(bp)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	manager := input.NewManager()
	s := newSession(emu, be, limiter, manager)

	config := backend.Config{
		Title:         "go-advance",
		Scale:         c.Int("scale"),
		ShowDebug:     c.Bool("debug"),
		Callbacks:     backend.Callbacks{OnQuit: cancel},
		InputManager:  manager,
		DebugProvider: s,
	}
	if err := be.Init(config); err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer be.Cleanup()

	if c.Bool("statsview") {
		stop := profiling.Launch(c.String("statsview-addr"))
		defer stop()
	}

	err = s.run(ctx)
	slog.Info("Emulation stopped", "frames", emu.FrameCount(), "cycles", emu.CPU().Cycles())
	return err
}

// selectBackend builds the backend and frame limiter the flags ask for.
func selectBackend(c *cli.Context, romPath string) (backend.Backend, timing.Limiter, error) {
	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return nil, nil, errors.New("headless mode requires --frames option with a positive value")
		}

		// Set up debug logging for headless mode
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))

		snapshots, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
		if err != nil {
			return nil, nil, err
		}
		snapshots.Scale = c.Int("snapshot-scale")
		return headless.New(frames, snapshots), timing.NewNoOpLimiter(), nil
	}

	limiter, err := timing.New(c.String("pacing"))
	if err != nil {
		return nil, nil, err
	}

	switch name := c.String("backend"); name {
	case "terminal":
		return terminal.New(), limiter, nil
	case "sdl2":
		return sdl2.New(), limiter, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
}

func parseBreakpoints(values []string) ([]uint32, error) {
	breakpoints := make([]uint32, 0, len(values))
	for _, v := range values {
		hex := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "0x")
		address, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid breakpoint %q: %w", v, err)
		}
		breakpoints = append(breakpoints, uint32(address))
	}
	return breakpoints, nil
}
