package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a text slog.Logger on stdout at the provided level.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter builds a text slog.Logger writing to w. The CLI logs to
// stderr so command output stays clean on stdout.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler)
}

// ParseLevel maps a LOG_LEVEL value onto a slog level. Unknown values are
// info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "quiet", "off":
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}
