package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LogEntry is a single captured log line for display inside the terminal UI.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// LogBuffer is a fixed-capacity ring buffer of recent log entries.
type LogBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	cap     int
}

func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{cap: capacity}
}

func (b *LogBuffer) add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	if len(b.entries) > b.cap {
		b.entries = b.entries[len(b.entries)-b.cap:]
	}
}

// GetRecent returns up to n of the most recently captured entries, oldest first.
func (b *LogBuffer) GetRecent(n int) []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.entries) {
		n = len(b.entries)
	}
	if n <= 0 {
		return nil
	}
	start := len(b.entries) - n
	out := make([]LogEntry, n)
	copy(out, b.entries[start:])
	return out
}

// LogBufferHandler is an slog.Handler that feeds records into a LogBuffer
// instead of (or in addition to) writing them to a stream. Terminal backends
// use it so log output doesn't corrupt the tcell-drawn screen.
type LogBufferHandler struct {
	buffer    *LogBuffer
	level     slog.Leveler
	withAttrs []slog.Attr
}

func NewLogBufferHandler(buffer *LogBuffer, level slog.Leveler) *LogBufferHandler {
	return &LogBufferHandler{buffer: buffer, level: level}
}

func (h *LogBufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogBufferHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	r.Attrs(func(a slog.Attr) bool {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})

	h.buffer.add(LogEntry{Time: r.Time, Level: r.Level, Message: msg})
	return nil
}

func (h *LogBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogBufferHandler{buffer: h.buffer, level: h.level, withAttrs: append(h.withAttrs, attrs...)}
}

func (h *LogBufferHandler) WithGroup(_ string) slog.Handler {
	return h
}

// FormatLogEntry renders a log entry as a single display line.
func FormatLogEntry(e LogEntry) string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}
