// Package logger builds the *slog.Logger used across revchat.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type settings struct {
	format  Format
	level   slog.Level
	source  bool
	prefix  string
	outputs []io.Writer
}

// New creates a *slog.Logger from opts. Records go to os.Stderr by default,
// keeping stdout free for chat output.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(s)
	}

	w := s.output()

	if s.format == FormatPretty {
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(s.level),
			Prefix:          s.prefix,
			ReportCaller:    s.source,
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		}))
	}

	hopts := &slog.HandlerOptions{Level: s.level, AddSource: s.source}

	var h slog.Handler
	if s.format == FormatJSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}

	l := slog.New(h)
	if s.prefix != "" {
		l = l.With("component", s.prefix)
	}
	return l
}

func (s *settings) output() io.Writer {
	switch len(s.outputs) {
	case 0:
		return os.Stderr
	case 1:
		return s.outputs[0]
	default:
		return io.MultiWriter(s.outputs...)
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
