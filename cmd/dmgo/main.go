package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/mvalera/dmgo"
	"github.com/mvalera/dmgo/dmgo/backend"
	"github.com/mvalera/dmgo/dmgo/input"
	"github.com/mvalera/dmgo/dmgo/input/action"
	"github.com/mvalera/dmgo/dmgo/input/event"
	"github.com/mvalera/dmgo/dmgo/render"
	"github.com/mvalera/dmgo/dmgo/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgo"
	app.Description = "A Game Boy (DMG) emulator"
	app.Usage = "dmgo [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a terminal interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Start the headless backend without loading a ROM; it logs a message and exits at once",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save a PNG snapshot every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "sdl2",
			Usage: "Use the windowed SDL2 backend instead of the terminal UI (requires building with -tags sdl2)",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	testPattern := c.Bool("test-pattern")

	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}
	if romPath == "" && !testPattern {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}

	if c.Bool("headless") {
		return runHeadless(c, romPath, testPattern)
	}

	if testPattern {
		return errors.New("--test-pattern requires --headless")
	}

	emu, err := dmgo.NewFromFile(romPath)
	if err != nil {
		return err
	}

	if c.Bool("sdl2") {
		return runSDL2(emu)
	}

	renderer, err := render.NewTerminalRenderer(emu)
	if err != nil {
		return err
	}
	return renderer.Run()
}

// runSDL2 drives the emulator through the windowed SDL2 backend, routing
// the input events it reports through the shared action/event vocabulary
// in dmgo/input so the mapping logic isn't duplicated per backend.
func runSDL2(emu *dmgo.Emulator) error {
	sdl2 := backend.NewSDL2Backend()
	if err := sdl2.Init(backend.BackendConfig{Title: "dmgo", APU: emu.APU()}); err != nil {
		return fmt.Errorf("initializing SDL2 backend: %w", err)
	}
	defer sdl2.Cleanup()

	manager := input.NewManager(emu)
	quit := false
	manager.On(action.EmulatorQuit, event.Press, func() { quit = true })

	var limiter timing.Limiter = timing.NewAdaptiveLimiter()

	for !quit {
		if _, err := emu.StepFrame(); err != nil {
			return fmt.Errorf("stepping frame: %w", err)
		}

		limiter.WaitForNextFrame()

		events, err := sdl2.Update(emu.CurrentFrame())
		if err != nil {
			return fmt.Errorf("updating SDL2 backend: %w", err)
		}
		for _, evt := range events {
			manager.Trigger(evt.Action, evt.Type)
		}
	}

	return nil
}

func runHeadless(c *cli.Context, romPath string, testPattern bool) error {
	frames := c.Int("frames")
	if frames <= 0 && !testPattern {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	snapshotConfig, err := backend.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))

	headless := backend.NewHeadlessBackend(frames, snapshotConfig)

	if testPattern {
		return headless.Init(backend.BackendConfig{Title: "dmgo", TestPattern: true})
	}

	emu, err := dmgo.NewFromFile(romPath)
	if err != nil {
		return err
	}

	quit := false
	config := backend.BackendConfig{
		Title: "dmgo",
		APU:   emu.APU(),
		Callbacks: backend.Callbacks{
			OnQuit: func() { quit = true },
		},
	}

	if err := headless.Init(config); err != nil {
		return fmt.Errorf("initializing headless backend: %w", err)
	}
	defer headless.Cleanup()

	for !quit {
		if _, err := emu.StepFrame(); err != nil {
			return fmt.Errorf("stepping frame: %w", err)
		}

		if _, err := headless.Update(emu.CurrentFrame()); err != nil {
			return fmt.Errorf("updating headless backend: %w", err)
		}
	}

	if snapshotConfig.Enabled {
		slog.Info("headless execution completed", "frames", frames, "snapshots_saved_to", snapshotConfig.Directory)
	} else {
		slog.Info("headless execution completed", "frames", frames)
	}

	return nil
}
