package backend

import (
	"github.com/mvalera/dmgo/dmgo/apu"
	"github.com/mvalera/dmgo/dmgo/input/action"
	"github.com/mvalera/dmgo/dmgo/input/event"
	"github.com/mvalera/dmgo/dmgo/video"
)

// InputEvent represents an input event from a backend
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// Backend represents a complete emulator platform (rendering + input)
// Backends are responsible for:
// - Rendering frames to their specific output (terminal, SDL window, etc.)
// - Capturing platform-specific input events and returning them as InputEvents
// - Handling backend-specific features (snapshots, test patterns)
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config BackendConfig) error

	// Update handles rendering the frame and collecting platform events.
	// Backends should:
	// 1. Poll for platform-specific events (keyboard, window events, etc.)
	// 2. Translate events to InputEvents and return them
	// 3. Render the provided frame (or test pattern if configured)
	// 4. Handle backend-specific features (snapshots, etc.)
	// Returns a slice of InputEvents that occurred during this update
	Update(frame *video.FrameBuffer) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// Callbacks lets a backend report lifecycle events back to the driver
// without needing to know about the full emulator type.
type Callbacks struct {
	OnQuit func()
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title       string
	Scale       int
	Fullscreen  bool
	TestPattern bool // Headless only: start without a ROM, log a message and quit at once; nothing is drawn
	APU         apu.Provider
	Callbacks   Callbacks
}
