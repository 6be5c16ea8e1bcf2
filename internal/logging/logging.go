// Package logging sets up the process-wide structured logger used by every
// gateway subsystem. It follows the teacher's pattern of a single
// slog.Handler fanning out to multiple writers with independent level
// filtering, so a host can send, e.g., debug-level logs to a file while
// only warnings reach stderr.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Component returns a logger carrying a "component" attribute set to name.
// The name is used as given; no brackets or message prefix are added (the
// "[B2BUA]"-style prefixes in the gateway's log output are written into
// the messages themselves).
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// ParseLevel parses a case-insensitive level string, defaulting to Info
// for unrecognized input.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelWriter pairs an output with the minimum level it accepts.
type levelWriter struct {
	w     io.Writer
	level slog.Level
}

// FanoutHandler is an slog.Handler that writes formatted records to several
// outputs, each with its own minimum level.
type FanoutHandler struct {
	mu      sync.Mutex
	outputs []levelWriter
	attrs   []slog.Attr
	group   string
}

// NewFanoutHandler builds a handler over the given outputs. Pass outputs as
// (writer, level) pairs via AddOutput after construction, or use
// Init for the common single-writer case.
func NewFanoutHandler() *FanoutHandler {
	return &FanoutHandler{}
}

// AddOutput registers an additional destination with its own level floor.
func (h *FanoutHandler) AddOutput(w io.Writer, level slog.Level) *FanoutHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outputs = append(h.outputs, levelWriter{w: w, level: level})
	return h
}

func (h *FanoutHandler) Enabled(_ context.Context, level slog.Level) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range h.outputs {
		if level >= o.level {
			return true
		}
	}
	return false
}

func (h *FanoutHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	b.WriteString("[" + record.Time.Format("15:04:05.000") + "] [" + record.Level.String() + "] ")
	if h.group != "" {
		b.WriteString(h.group + ": ")
	}
	b.WriteString(record.Message)
	for _, a := range h.attrs {
		b.WriteString(" " + a.Key + "=" + a.Value.String())
	}
	record.Attrs(func(a slog.Attr) bool {
		b.WriteString(" " + a.Key + "=" + a.Value.String())
		return true
	})
	b.WriteByte('\n')
	line := []byte(b.String())

	for _, o := range h.outputs {
		if record.Level >= o.level && o.w != nil {
			_, _ = o.w.Write(line)
		}
	}
	return nil
}

func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := &FanoutHandler{outputs: h.outputs, group: h.group}
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return clone
}

func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := &FanoutHandler{outputs: h.outputs, attrs: h.attrs, group: name}
	return clone
}

// Init installs a FanoutHandler writing to w at the given level as the
// process default logger. Intended for standalone/demo binaries; a host
// embedding the core may install its own slog.Default instead.
func Init(w io.Writer, level slog.Level) {
	h := NewFanoutHandler().AddOutput(w, level)
	slog.SetDefault(slog.New(h))
}
