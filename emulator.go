// Package dmgo implements a Game Boy (DMG) emulator: a Sharp LR35902
// interpreter, a memory bus with timer/serial/joypad I/O, and a
// scanline picture generation unit, wired together one instruction at a time.
package dmgo

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mvalera/dmgo/dmgo/addr"
	"github.com/mvalera/dmgo/dmgo/apu"
	"github.com/mvalera/dmgo/dmgo/cpu"
	"github.com/mvalera/dmgo/dmgo/mem"
	"github.com/mvalera/dmgo/dmgo/video"
)

// cyclesPerFrame is the number of CPU cycles a single 154-scanline DMG
// frame takes at the native ~4.19MHz clock (70224 cycles, 59.7 fps).
const cyclesPerFrame = 70224

// RegisterSnapshot is a read-only copy of the CPU's register file, handed
// out to renderers/debuggers without exposing the live CPU.
type RegisterSnapshot struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
}

// Emulator drives the CPU, memory bus and PPU together, advancing them in
// strict per-instruction order: execute, tick timers/serial, tick the LCD,
// then service any interrupt that became pending as a result.
type Emulator struct {
	cpu *cpu.CPU
	mmu *mem.MMU
	gpu *video.GPU

	frameCount int
}

// New creates an emulator with no cartridge loaded; useful for tests that
// only exercise the CPU/bus without a ROM.
func New() *Emulator {
	mmu := mem.New()
	return newWithMMU(mmu)
}

// NewWithROM creates an emulator from a raw ROM image, parsing its header
// to pick the right memory bank controller.
func NewWithROM(romData []byte) (*Emulator, error) {
	cart, err := mem.NewCartridgeWithData(romData)
	if err != nil {
		return nil, fmt.Errorf("loading ROM: %w", err)
	}

	mmu, err := mem.NewWithCartridge(cart)
	if err != nil {
		return nil, fmt.Errorf("loading ROM: %w", err)
	}

	return newWithMMU(mmu), nil
}

// NewFromFile reads a ROM file from disk and creates an emulator for it.
func NewFromFile(path string) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM file: %w", err)
	}

	slog.Debug("loaded ROM", "path", path, "size", len(data))

	return NewWithROM(data)
}

func newWithMMU(mmu *mem.MMU) *Emulator {
	return &Emulator{
		cpu: cpu.New(mmu),
		mmu: mmu,
		gpu: video.NewGpu(mmu),
	}
}

// StepFrame runs the emulator until a full frame's worth of cycles has
// elapsed. Each instruction is executed, the bus and LCD are advanced by
// the cycles it took, and only then is a pending interrupt serviced -
// interrupts never preempt an instruction mid-flight.
func (e *Emulator) StepFrame() (int, error) {
	elapsed := 0

	for elapsed < cyclesPerFrame {
		cycles := e.cpu.Step()
		e.mmu.Tick(cycles)
		e.gpu.Tick(cycles)
		cycles += e.cpu.ServiceInterrupts()

		elapsed += cycles
	}

	e.frameCount++

	return elapsed, nil
}

// SetKey presses or releases a joypad key, requesting the joypad interrupt
// on a press transition the same way real hardware does.
func (e *Emulator) SetKey(key mem.JoypadKey, pressed bool) {
	if pressed {
		e.mmu.HandleKeyPress(key)
	} else {
		e.mmu.HandleKeyRelease(key)
	}
}

// CurrentFrame returns the framebuffer the GPU last finished rendering.
func (e *Emulator) CurrentFrame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

// FrameCount returns the number of frames completed since the emulator started.
func (e *Emulator) FrameCount() int {
	return e.frameCount
}

// RegisterSnapshot returns a copy of the CPU's current register state.
func (e *Emulator) RegisterSnapshot() RegisterSnapshot {
	snap := e.cpu.Snapshot()
	return RegisterSnapshot{
		A: snap.A, F: snap.F, B: snap.B, C: snap.C, D: snap.D, E: snap.E, H: snap.H, L: snap.L,
		SP: snap.SP, PC: snap.PC,
	}
}

// BatteryRAM returns the cartridge's battery-backed save RAM, or nil if the
// loaded cartridge has none.
func (e *Emulator) BatteryRAM() []byte {
	return e.mmu.BatteryRAM()
}

// LoadBatteryRAM restores a previously saved battery RAM image.
func (e *Emulator) LoadBatteryRAM(data []byte) {
	e.mmu.LoadBatteryRAM(data)
}

// APU returns the audio processing unit driving this emulator, for backends
// that pull PCM samples or expose channel mute/solo controls.
func (e *Emulator) APU() *apu.APU {
	return e.mmu.APU
}

// RequestInterrupt forwards an externally observed interrupt condition
// (e.g. a frontend driving the serial port) to the memory bus.
func (e *Emulator) RequestInterrupt(interrupt addr.Interrupt) {
	e.mmu.RequestInterrupt(interrupt)
}
