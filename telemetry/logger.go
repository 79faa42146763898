// Package telemetry provides the structured logging setup shared by
// package pipeline and cmd/modprop, grounded on
// 23skdu-longbow-fletcher/cmd/fletcher/main.go's zerolog.ConsoleWriter
// setup.
package telemetry

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Default is the package-level logger used by callers that haven't
// configured their own. It writes to stderr at info level until
// Configure is called.
var Default = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	Level(zerolog.InfoLevel).
	With().
	Timestamp().
	Logger()

// Configure builds a zerolog.Logger writing a human-readable console
// format to stderr at the given level ("debug", "info", "warn", "error";
// an unrecognized level falls back to "info"). It also becomes the new
// package-level Default.
func Configure(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	Default = logger
	return logger
}
