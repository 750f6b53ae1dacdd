package input

import (
	"time"

	"github.com/mvalera/dmgo/dmgo/input/action"
	"github.com/mvalera/dmgo/dmgo/input/event"
	"github.com/mvalera/dmgo/dmgo/mem"
)

const (
	// debounceDuration is the minimum time between debounced events
	debounceDuration = 300 * time.Millisecond
)

// joypadSetter is satisfied by anything that can press/release a Game Boy
// button, e.g. the root Emulator type.
type joypadSetter interface {
	SetKey(key mem.JoypadKey, pressed bool)
}

// Manager handles input actions and their associated callbacks
type Manager struct {
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]map[event.Type]time.Time
	keys          joypadSetter
}

// NewManager creates a Manager that writes Game Boy control actions
// directly into keys' joypad state, and routes everything else to
// registered callbacks.
func NewManager(keys joypadSetter) *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]map[event.Type]time.Time),
		keys:          keys,
	}
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}
	if m.lastTriggered[act] == nil {
		m.lastTriggered[act] = make(map[event.Type]time.Time)
	}

	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type.
func (m *Manager) Trigger(act action.Action, evt event.Type) {
	// Debounce Press and Release events of actions marked Debounce
	if (evt == event.Press || evt == event.Release) && action.GetInfo(act).Debounce {
		now := time.Now()
		if m.lastTriggered[act] == nil {
			m.lastTriggered[act] = make(map[event.Type]time.Time)
		}
		lastTime := m.lastTriggered[act][evt]
		if now.Sub(lastTime) < debounceDuration {
			return
		}
		m.lastTriggered[act][evt] = now
	}

	// GB controls, written directly to the joypad
	if m.keys != nil {
		joypadKey, isGBControl := m.getJoypadKey(act)
		if isGBControl {
			switch evt {
			case event.Press:
				m.keys.SetKey(joypadKey, true)
			case event.Release:
				m.keys.SetKey(joypadKey, false)
			}
			return // Only return for GB controls
		}
	}

	// Other emulator actions
	if m.handlers[act] != nil && len(m.handlers[act][evt]) > 0 {
		for _, callback := range m.handlers[act][evt] {
			callback()
		}
	}
}

// getJoypadKey maps Game Boy actions to joypad keys. The bool reports
// whether act is a Game Boy control at all (JoypadRight is the zero value,
// so it can't double as a "not found" sentinel).
func (m *Manager) getJoypadKey(act action.Action) (mem.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return mem.JoypadA, true
	case action.GBButtonB:
		return mem.JoypadB, true
	case action.GBButtonStart:
		return mem.JoypadStart, true
	case action.GBButtonSelect:
		return mem.JoypadSelect, true
	case action.GBDPadUp:
		return mem.JoypadUp, true
	case action.GBDPadDown:
		return mem.JoypadDown, true
	case action.GBDPadLeft:
		return mem.JoypadLeft, true
	case action.GBDPadRight:
		return mem.JoypadRight, true
	default:
		return 0, false
	}
}
