// Package logging provides the structured logger injected into every
// transport and codec component. Components depend on LoggerInterface, never
// a concrete type, so a test can swap in NoopLogger without touching
// production wiring.
package logging

import "context"

// LogLevel orders logging verbosity from most to least chatty.
type LogLevel int

const (
	// LevelTrace is the most verbose level; protocol hexdumps log here.
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	// LevelNone disables all logging.
	LevelNone
)

func (l LogLevel) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "none"
	}
}

// LoggerInterface is the logging contract every component is injected with.
type LoggerInterface interface {
	Trace(ctx context.Context, format string, args ...interface{})
	Debug(ctx context.Context, format string, args ...interface{})
	Info(ctx context.Context, format string, args ...interface{})
	Warn(ctx context.Context, format string, args ...interface{})
	Error(ctx context.Context, format string, args ...interface{})
	// WithFields returns a logger that annotates every subsequent entry with
	// the given key/value pairs.
	WithFields(fields map[string]interface{}) LoggerInterface
	GetLevel() LogLevel
	SetLevel(level LogLevel)
}

// HexdumpInterface is an optional capability a LoggerInterface may also
// implement for verbose protocol-level tracing.
type HexdumpInterface interface {
	Hexdump(ctx context.Context, data []byte)
}
