package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var (
	level  = zerolog.InfoLevel
	output io.Writer = os.Stderr
)

// Setup configures process-wide logging. format "console" switches to a
// human-readable writer for local development; anything else emits JSON.
func Setup(levelName, format string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"

	level = parseLevel(levelName)
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(format, "console") {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	} else {
		output = os.Stderr
	}
}

// New returns a logger tagged with the given component name.
func New(component string) zerolog.Logger {
	return zerolog.New(output).
		With().
		Str("component", component).
		Timestamp().
		Logger().
		Level(level)
}

// Nop is used by tests and by components constructed without a logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(name string) zerolog.Level {
	switch strings.ToUpper(name) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
