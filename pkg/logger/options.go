package logger

import (
	"io"
	"log/slog"
)

// Format selects how records are rendered.
type Format int

const (
	// FormatText is slog's key=value rendering.
	FormatText Format = iota

	// FormatJSON writes one JSON object per record.
	FormatJSON

	// FormatPretty is the colorized charmbracelet/log rendering for terminals.
	FormatPretty
)

// FormatFor maps the log.json and log.pretty settings to a Format.
// JSON wins when both are set.
func FormatFor(json, pretty bool) Format {
	switch {
	case json:
		return FormatJSON
	case pretty:
		return FormatPretty
	default:
		return FormatText
	}
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatPretty:
		return "pretty"
	default:
		return "text"
	}
}

// Option configures a logger built by New.
type Option func(*settings)

// WithFormat picks the rendering.
func WithFormat(f Format) Option {
	return func(s *settings) {
		s.format = f
	}
}

// WithLevel parses a level name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged.
func WithLevel(name string) Option {
	return func(s *settings) {
		var level slog.Level
		if err := level.UnmarshalText([]byte(name)); err == nil {
			s.level = level
		}
	}
}

// WithDebug lowers the level to Debug. False is a no-op, so --debug can be
// applied after log.level without undoing it.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithOutput replaces the destination. Several writers receive identical
// bytes. Defaults to os.Stderr.
func WithOutput(w ...io.Writer) Option {
	return func(s *settings) {
		s.outputs = w
	}
}

// WithSource adds the calling file and line.
func WithSource(source bool) Option {
	return func(s *settings) {
		s.source = source
	}
}

// WithPrefix labels pretty records, e.g. "serve". Other formats add it as a
// "component" attribute.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}
