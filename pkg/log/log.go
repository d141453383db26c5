// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a level name to a slog level; unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}

	return level
}

// NewHandler returns a text handler, or a JSON handler when format is "json".
func NewHandler(w io.Writer, format, level string) slog.Handler {
	options := &slog.HandlerOptions{Level: ParseLevel(level)}

	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, options)
	}

	return slog.NewTextHandler(w, options)
}

// Setup installs the default logger on stderr. format is "text" (default) or "json".
func Setup(logLevel string, format ...string) {
	logFormat := "text"
	if len(format) > 0 {
		logFormat = format[0]
	}

	slog.SetDefault(slog.New(NewHandler(os.Stderr, logFormat, logLevel)))
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
