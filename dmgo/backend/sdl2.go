//go:build sdl2

package backend

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/mvalera/dmgo/dmgo/input/action"
	"github.com/mvalera/dmgo/dmgo/input/event"
	"github.com/mvalera/dmgo/dmgo/video"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	pixelScale        = 3
	windowWidth       = video.FramebufferWidth * pixelScale
	windowHeight      = video.FramebufferHeight * pixelScale
	rgbaBytesPerPixel = 4

	audioSampleRate    = 44100
	audioSamplesPerBuf = 2048
	// samplesPerUpdate is how many stereo sample pairs to pull from the APU
	// on each Update call, assuming roughly one call per video frame (~59.7Hz).
	samplesPerUpdate = audioSampleRate / 60
)

// SDL2Backend implements the Backend interface using SDL2 bindings.
// Building it requires SDL2 development libraries installed; default
// builds skip this and use the stub in sdl2_stub.go (see the "sdl2" tag).
type SDL2Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
	config   BackendConfig
	audioDev sdl.AudioDeviceID
}

// NewSDL2Backend creates a new SDL2 backend
func NewSDL2Backend() *SDL2Backend {
	return &SDL2Backend{}
}

// Init initializes the SDL2 backend
func (s *SDL2Backend) Init(config BackendConfig) error {
	s.config = config

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %v", err)
	}

	window, err := sdl.CreateWindow(
		config.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		windowWidth,
		windowHeight,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("failed to create window: %v", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create renderer: %v", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.FramebufferWidth,
		video.FramebufferHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create texture: %v", err)
	}
	s.texture = texture
	s.running = true

	if config.APU != nil {
		s.openAudio()
	}

	slog.Info("SDL2 backend initialized")

	return nil
}

// openAudio opens the default playback device and unpauses it. Audio is
// best-effort: a failure here logs a warning and the backend runs silent.
func (s *SDL2Backend) openAudio() {
	spec := &sdl.AudioSpec{
		Freq:     audioSampleRate,
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  audioSamplesPerBuf,
	}

	dev, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		slog.Warn("failed to open SDL2 audio device, running without sound", "error", err)
		return
	}

	s.audioDev = dev
	sdl.PauseAudioDevice(dev, false)
}

// queueAudio pulls freshly generated samples from the APU and hands them to
// SDL2's audio queue, converting from interleaved int16 to little-endian bytes.
func (s *SDL2Backend) queueAudio() {
	samples := s.config.APU.GetSamples(samplesPerUpdate)
	if len(samples) == 0 {
		return
	}

	buf := make([]byte, len(samples)*2)
	for i, sample := range samples {
		buf[i*2] = byte(sample)
		buf[i*2+1] = byte(sample >> 8)
	}

	if err := sdl.QueueAudio(s.audioDev, buf); err != nil {
		slog.Debug("failed to queue audio", "error", err)
	}
}

// Update renders a frame and processes events
func (s *SDL2Backend) Update(frame *video.FrameBuffer) ([]InputEvent, error) {
	if !s.running {
		return nil, nil
	}

	var events []InputEvent
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		events = append(events, s.translateEvent(e)...)
	}

	s.renderFrame(frame)

	if s.audioDev != 0 {
		s.queueAudio()
	}

	return events, nil
}

// Cleanup cleans up SDL2 resources
func (s *SDL2Backend) Cleanup() error {
	slog.Info("cleaning up SDL2 backend")

	if s.audioDev != 0 {
		sdl.CloseAudioDevice(s.audioDev)
	}
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()

	return nil
}

func (s *SDL2Backend) translateEvent(e sdl.Event) []InputEvent {
	switch ev := e.(type) {
	case *sdl.QuitEvent:
		s.running = false
		return []InputEvent{{Action: action.EmulatorQuit, Type: event.Press}}
	case *sdl.KeyboardEvent:
		if ev.Type == sdl.KEYDOWN {
			if channel, ok := channelMuteKey(ev.Keysym.Sym); ok && s.config.APU != nil {
				s.config.APU.ToggleChannel(channel)
				return nil
			}
		}

		act, ok := keyAction(ev.Keysym.Sym)
		if !ok {
			return nil
		}
		if ev.Type == sdl.KEYDOWN {
			if act == action.EmulatorQuit {
				s.running = false
			}
			return []InputEvent{{Action: act, Type: event.Press}}
		}
		return []InputEvent{{Action: act, Type: event.Release}}
	}
	return nil
}

// channelMuteKey maps F1-F4 to toggling the mute state of one of the four
// APU channels, for audio debugging while a ROM is running.
func channelMuteKey(key sdl.Keycode) (channel int, ok bool) {
	switch key {
	case sdl.K_F1:
		return 0, true
	case sdl.K_F2:
		return 1, true
	case sdl.K_F3:
		return 2, true
	case sdl.K_F4:
		return 3, true
	}
	return 0, false
}

func keyAction(key sdl.Keycode) (action.Action, bool) {
	switch key {
	case sdl.K_RETURN:
		return action.GBButtonStart, true
	case sdl.K_RSHIFT, sdl.K_LSHIFT:
		return action.GBButtonSelect, true
	case sdl.K_z:
		return action.GBButtonA, true
	case sdl.K_x:
		return action.GBButtonB, true
	case sdl.K_UP:
		return action.GBDPadUp, true
	case sdl.K_DOWN:
		return action.GBDPadDown, true
	case sdl.K_LEFT:
		return action.GBDPadLeft, true
	case sdl.K_RIGHT:
		return action.GBDPadRight, true
	case sdl.K_ESCAPE:
		return action.EmulatorQuit, true
	case sdl.K_SPACE:
		return action.EmulatorPauseToggle, true
	case sdl.K_F9:
		return action.EmulatorSnapshot, true
	}
	return 0, false
}

func (s *SDL2Backend) renderFrame(frame *video.FrameBuffer) {
	frameData := frame.ToSlice()
	sdlPixels := make([]byte, video.FramebufferWidth*video.FramebufferHeight*rgbaBytesPerPixel)

	for i, gbPixel := range frameData {
		dst := i * rgbaBytesPerPixel
		// RGBA8888 stored little-endian: ABGR byte order
		sdlPixels[dst] = byte(gbPixel)         // alpha
		sdlPixels[dst+1] = byte(gbPixel >> 8)  // blue
		sdlPixels[dst+2] = byte(gbPixel >> 16) // green
		sdlPixels[dst+3] = byte(gbPixel >> 24) // red
	}

	s.texture.Update(nil, unsafe.Pointer(&sdlPixels[0]), video.FramebufferWidth*rgbaBytesPerPixel)

	s.renderer.SetDrawColor(0, 0, 0, 255)
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
}
