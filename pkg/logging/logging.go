// Package logging holds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is used by every package. It is silent until Init is called so that
// library callers and tests get no output by default.
var Logger = zerolog.Nop()

// Init configures Logger. Unknown levels fall back to info.
func Init(w io.Writer, level string, jsonOutput bool) {
	if w == nil {
		w = os.Stderr
	}
	if !jsonOutput {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	Logger = zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "none", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Debug starts a debug event on Logger.
func Debug() *zerolog.Event { return Logger.Debug() }

// Info starts an info event on Logger.
func Info() *zerolog.Event { return Logger.Info() }

// Warn starts a warn event on Logger.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error starts an error event on Logger.
func Error() *zerolog.Event { return Logger.Error() }
