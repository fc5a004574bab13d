package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Attribute keys that could carry patient content. Their values are replaced
// before a record reaches the handler.
var redactedKeys = map[string]struct{}{
	"patient_data": {},
	"notes":        {},
	"text":         {},
	"text_content": {},
	"record":       {},
	"nhs_number":   {},
	"filename":     {},
	"body":         {},
}

const redacted = "[REDACTED]"

func NewJSONLogger(service, level string) *slog.Logger {
	return newJSONLogger(os.Stdout, service, level)
}

// Setup builds the JSON logger and installs it as the slog default.
func Setup(service, level string) *slog.Logger {
	logger := NewJSONLogger(service, level)
	slog.SetDefault(logger)
	return logger
}

func newJSONLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redact,
	})
	return slog.New(handler).With("service", service)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := redactedKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

func parseLevel(level string) slog.Level {
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
