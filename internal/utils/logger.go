package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a textual level to slog; unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewLogger returns a slog.Logger configured for the desired verbosity and format.
func NewLogger(level string, json bool) *slog.Logger {
	return slog.New(newHandler(os.Stdout, ParseLevel(level), json))
}

// NewLoggerWithFile behaves like NewLogger and additionally fans every record out
// to logFile as JSON. The returned cleanup closes the file. When the file cannot be
// opened the logger falls back to stdout only.
func NewLoggerWithFile(level string, json bool, logFile string) (*slog.Logger, func() error) {
	lvl := ParseLevel(level)
	console := newHandler(os.Stdout, lvl, json)
	if logFile == "" {
		return slog.New(console), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(console)
		logger.Error("failed to open log file, using stdout only", slog.String("file", logFile), slog.Any("error", err))
		return logger, func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl})
	return slog.New(slogmulti.Fanout(console, fileHandler)), file.Close
}

// NewLoggerWithWriters fans out text to console and JSON to file (for tests).
func NewLoggerWithWriters(console, file io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: lvl}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl}),
	))
}

func newHandler(w io.Writer, level slog.Level, json bool) slog.Handler {
	if json {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}
