// Package logger builds the process-wide slog logger. Production runs emit
// JSON for log shippers; every other environment gets the text handler.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// L is the process logger. It starts as slog's default and is replaced by Setup.
var L = slog.Default()

// New returns a logger writing to w with the handler chosen by appEnv.
func New(appEnv string, w io.Writer) *slog.Logger {
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "production", "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// Setup installs a stdout logger for appEnv as L and as slog's default.
func Setup(appEnv string) *slog.Logger {
	L = New(appEnv, os.Stdout)
	slog.SetDefault(L)
	return L
}

// For tags log lines with the component that produced them.
func For(component string) *slog.Logger {
	return L.With("component", component)
}
