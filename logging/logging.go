// Package logging wires zerolog to stderr plus a bounded in-memory ring the
// UI surface can render.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Ring keeps the most recent log lines. It is an io.Writer so it can sit
// behind zerolog alongside the console writer.
type Ring struct {
	mu    sync.Mutex
	lines []string
	max   int

	// OnLine, when set, is invoked for every complete line appended.
	OnLine func(string)
}

func NewRing(max int) *Ring {
	if max <= 0 {
		max = 3000
	}
	return &Ring{max: max}
}

func (r *Ring) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}
	r.mu.Lock()
	r.lines = append(r.lines, line)
	if over := len(r.lines) - r.max; over > 0 {
		r.lines = r.lines[over:]
	}
	cb := r.OnLine
	r.mu.Unlock()
	if cb != nil {
		cb(line)
	}
	return len(p), nil
}

// Snapshot returns a copy of the buffered lines.
func (r *Ring) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// New builds the process logger. level is one of zerolog's level strings;
// anything unparseable falls back to info.
func New(level string, ring *Ring) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	var w zerolog.LevelWriter
	if ring != nil {
		w = zerolog.MultiLevelWriter(console, ring)
	} else {
		w = zerolog.MultiLevelWriter(console)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
