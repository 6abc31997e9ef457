package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a diagnostic line before
	// truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent diagnostic lines kept
	// for inclusion in error messages.
	MaxBufferedLines = 50
)

// OutputTap observes the browser's diagnostic output stream. It keeps
// a ring of recent lines (surfaced in timeout and crash errors),
// optionally mirrors every line to a writer, and logs notable lines.
type OutputTap struct {
	logger *slog.Logger
	mirror io.Writer // nil disables mirroring

	mu     sync.Mutex
	buffer []string
	bufIdx int
	filled bool
}

// NewOutputTap creates a tap. Mirror may be nil; when set, every
// observed line is copied there unconditionally.
func NewOutputTap(logger *slog.Logger, mirror io.Writer) *OutputTap {
	return &OutputTap{
		logger: logger,
		mirror: mirror,
		buffer: make([]string, MaxBufferedLines),
	}
}

// Observe processes a single diagnostic line.
func (t *OutputTap) Observe(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	t.mu.Lock()
	t.buffer[t.bufIdx] = line
	t.bufIdx = (t.bufIdx + 1) % MaxBufferedLines
	if t.bufIdx == 0 {
		t.filled = true
	}
	t.mu.Unlock()

	if t.mirror != nil {
		fmt.Fprintln(t.mirror, line)
	}

	t.logLine(line)
}

// Recent returns the buffered lines, oldest first.
func (t *OutputTap) Recent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	if t.filled {
		out = append(out, t.buffer[t.bufIdx:]...)
	}
	out = append(out, t.buffer[:t.bufIdx]...)

	// Drop empty slots from a partially filled buffer.
	kept := out[:0]
	for _, line := range out {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return kept
}

func (t *OutputTap) logLine(line string) {
	level := classifyLine(line)
	if level == slog.LevelDebug && !t.logger.Enabled(nil, slog.LevelDebug) {
		return
	}
	t.logger.Log(nil, level, "browser_stderr", "line", line)
}

// classifyLine maps browser diagnostic lines to log levels.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	if strings.Contains(lower, "fatal") ||
		strings.Contains(lower, ":error:") ||
		strings.Contains(lower, "failed to launch") {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}
