// Package logger holds the process-wide zerolog logger used by the cryorestore
// packages. The default logger discards everything; embedding programs opt in
// with Set or through config.ApplyLogging.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	current.Store(&nop)
}

// New creates a structured logger writing JSON lines to writer.
func New(writer io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole creates a human readable logger on stderr.
func NewConsole(level zerolog.Level) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	return New(consoleWriter, level)
}

// Set replaces the package-level logger.
func Set(l zerolog.Logger) {
	current.Store(&l)
}

// L returns the package-level logger.
func L() *zerolog.Logger {
	return current.Load()
}

// ParseLevel converts a level name such as "debug" or "warn" into a zerolog level.
// An empty name maps to info.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q: %w", name, err)
	}
	return level, nil
}
