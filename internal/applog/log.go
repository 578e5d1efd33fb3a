// Package applog provides the process-wide structured logger used for
// observability events (trigger/start/per-note/batch completion,
// signature mismatches, partial search failures). CLI-facing human
// messages are a separate concern and stay on plain stderr writes.
package applog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's level set under a local name so callers don't
// need to import zerolog just to configure verbosity.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config controls logger construction.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Logger is the package-level logger, replaced by Init.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the package-level Logger from cfg.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var w io.Writer = out
	if !cfg.JSONOutput {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(w).Level(cfg.Level.zerolog()).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// Info, Warn and Error emit one structured event at their level, tagged
// with component and carrying every entry of fields as a log field.
func Info(component, msg string, fields map[string]any) {
	emit(Logger.Info(), component, msg, fields)
}

func Warn(component, msg string, fields map[string]any) {
	emit(Logger.Warn(), component, msg, fields)
}

func Error(component, msg string, err error, fields map[string]any) {
	ev := Logger.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	emit(ev, component, msg, fields)
}

func emit(ev *zerolog.Event, component, msg string, fields map[string]any) {
	ev = ev.Str("component", component)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
