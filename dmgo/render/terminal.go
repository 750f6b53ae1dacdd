package render

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/mvalera/dmgo"
	"github.com/mvalera/dmgo/dmgo/mem"
	"github.com/mvalera/dmgo/dmgo/timing"
)

const (
	width  = 160
	height = 144

	gameAreaWidth  = width
	gameAreaHeight = height
	registerHeight = 7
	minTermWidth   = 100
	minTermHeight  = 20
)

var shadeChars = []rune{'█', '▓', '▒', '░'}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// TerminalRenderer drives the emulator inside a tcell terminal UI, splitting
// the screen between the rendered Game Boy picture, CPU register readout and
// recent log output.
type TerminalRenderer struct {
	screen    tcell.Screen
	emulator  *dmgo.Emulator
	running   bool
	paused    bool
	logBuffer *LogBuffer
	limiter   timing.Limiter
}

func NewTerminalRenderer(emu *dmgo.Emulator) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	logBuffer := NewLogBuffer(100)
	handler := NewLogBufferHandler(logBuffer, slog.LevelDebug)
	slog.SetDefault(slog.New(handler))

	slog.Info("terminal renderer initialized")

	return &TerminalRenderer{
		screen:    screen,
		emulator:  emu,
		running:   true,
		logBuffer: logBuffer,
		limiter:   timing.NewAdaptiveLimiter(),
	}, nil
}

func (t *TerminalRenderer) Run() error {
	defer func() {
		slog.Info("finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	go t.handleInput()

	tick := make(chan struct{})
	go func() {
		for {
			t.limiter.WaitForNextFrame()
			tick <- struct{}{}
		}
	}()

	for t.running {
		select {
		case <-tick:
			if !t.paused {
				if _, err := t.emulator.StepFrame(); err != nil {
					slog.Error("emulation stopped", "error", err)
					return err
				}
			}
			t.render()
			t.screen.Show()

		case <-signals:
			t.running = false
			slog.Info("received signal to stop")
			return nil
		}
	}

	return nil
}

func (t *TerminalRenderer) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				t.running = false
				return
			case tcell.KeyEnter:
				t.emulator.SetKey(mem.JoypadStart, true)
			case tcell.KeyRight:
				t.emulator.SetKey(mem.JoypadRight, true)
			case tcell.KeyLeft:
				t.emulator.SetKey(mem.JoypadLeft, true)
			case tcell.KeyUp:
				t.emulator.SetKey(mem.JoypadUp, true)
			case tcell.KeyDown:
				t.emulator.SetKey(mem.JoypadDown, true)
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'a':
					t.emulator.SetKey(mem.JoypadA, true)
				case 's':
					t.emulator.SetKey(mem.JoypadB, true)
				case 'q':
					t.emulator.SetKey(mem.JoypadSelect, true)
				case ' ':
					t.paused = !t.paused
				}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *TerminalRenderer) render() {
	termWidth, termHeight := t.screen.Size()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		t.screen.Clear()
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		for i, ch := range msg {
			t.screen.SetContent(i, termHeight/2, ch, nil, style)
		}
		return
	}

	t.screen.Clear()
	t.drawBorders(termWidth, termHeight)
	t.drawGameBoy()
	t.drawRegisters(termWidth, termHeight)
	t.drawLogs(termWidth, termHeight)
}

func (t *TerminalRenderer) drawBorders(termWidth, termHeight int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	borderX := min(gameAreaWidth+1, termWidth/2)
	if borderX >= termWidth-10 {
		borderX = termWidth - 10
	}

	for y := 0; y < termHeight; y++ {
		if borderX < termWidth {
			t.screen.SetContent(borderX, y, '│', nil, borderStyle)
		}
	}

	registerEndY := registerHeight + 1
	if registerEndY < termHeight {
		for x := borderX + 1; x < termWidth; x++ {
			t.screen.SetContent(x, registerEndY, '─', nil, borderStyle)
		}
		t.screen.SetContent(borderX, registerEndY, '├', nil, borderStyle)
	}

	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	for i, ch := range " Game Boy " {
		t.screen.SetContent(1+i, 0, ch, nil, titleStyle)
	}
	for i, ch := range " CPU Registers " {
		t.screen.SetContent(borderX+2+i, 0, ch, nil, titleStyle)
	}
	if registerEndY+1 < termHeight {
		for i, ch := range " Logs " {
			t.screen.SetContent(borderX+2+i, registerEndY+1, ch, nil, titleStyle)
		}
	}

	if termHeight > 3 {
		helpStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
		helpText := "SPACE=pause/resume ESC=quit"
		maxWidth := min(len(helpText), termWidth-2)
		for i, ch := range helpText[:maxWidth] {
			t.screen.SetContent(1+i, termHeight-1, ch, nil, helpStyle)
		}
	}
}

func (t *TerminalRenderer) drawGameBoy() {
	fb := t.emulator.CurrentFrame()
	frame := fb.ToSlice()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			shade := PixelToShade(frame[y*width+x])
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
			t.screen.SetContent(x, y+1, shadeChars[shade], nil, style)
		}
	}
}

func (t *TerminalRenderer) drawRegisters(termWidth, termHeight int) {
	startX := gameAreaWidth + 3
	startY := 1

	regStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	statusStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	status := "RUNNING"
	if t.paused {
		status = "PAUSED"
		statusStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	}

	snap := t.emulator.RegisterSnapshot()
	registers := []string{
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("A: 0x%02X  F: 0x%02X", snap.A, snap.F),
		fmt.Sprintf("B: 0x%02X  C: 0x%02X", snap.B, snap.C),
		fmt.Sprintf("D: 0x%02X  E: 0x%02X", snap.D, snap.E),
		fmt.Sprintf("H: 0x%02X  L: 0x%02X", snap.H, snap.L),
		fmt.Sprintf("SP: 0x%04X  PC: 0x%04X", snap.SP, snap.PC),
		fmt.Sprintf("Frame: %d", t.emulator.FrameCount()),
	}

	for i, reg := range registers {
		if startY+i >= registerHeight+1 || startY+i >= termHeight {
			break
		}
		style := regStyle
		if i == 0 {
			style = statusStyle
		}
		x := startX
		for _, ch := range reg {
			if x >= termWidth {
				break
			}
			t.screen.SetContent(x, startY+i, ch, nil, style)
			x++
		}
	}
}

func (t *TerminalRenderer) drawLogs(termWidth, termHeight int) {
	startX := gameAreaWidth + 3
	startY := registerHeight + 3
	availableHeight := termHeight - startY

	if availableHeight <= 0 {
		return
	}

	logs := t.logBuffer.GetRecent(availableHeight)

	logStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed)

	for i, logEntry := range logs {
		style := logStyle
		switch logEntry.Level {
		case slog.LevelWarn:
			style = warnStyle
		case slog.LevelError:
			style = errStyle
		}

		logText := FormatLogEntry(logEntry)
		y := startY + i
		x := startX

		maxWidth := termWidth - startX - 1
		if len(logText) > maxWidth && maxWidth > 3 {
			logText = logText[:maxWidth-3] + "..."
		}

		for _, ch := range logText {
			if x >= termWidth {
				break
			}
			t.screen.SetContent(x, y, ch, nil, style)
			x++
		}
	}
}
