package logging

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Logger is the default LoggerInterface implementation, backed by a
// zap.SugaredLogger. It additionally implements HexdumpInterface.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	sugar *zap.SugaredLogger
}

// Option configures a Logger built by NewLogger.
type Option func(*Logger)

// WithLevel sets the initial log level.
func WithLevel(level LogLevel) Option {
	return func(l *Logger) {
		l.level = level
	}
}

// WithZapLogger swaps in a caller-built *zap.Logger (e.g. for a custom
// encoder or output path) instead of the development default.
func WithZapLogger(z *zap.Logger) Option {
	return func(l *Logger) {
		l.sugar = z.Sugar()
	}
}

// NewLogger builds a Logger. The default backing zap.Logger uses the
// development console encoder at LevelInfo.
func NewLogger(options ...Option) *Logger {
	z, _ := zap.NewDevelopment()
	l := &Logger{
		level: LevelInfo,
		sugar: z.Sugar(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *Logger) enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *Logger) Trace(ctx context.Context, format string, args ...interface{}) {
	if !l.enabled(LevelTrace) {
		return
	}
	l.sugar.Debugf("TRACE "+format, args...)
}

func (l *Logger) Debug(ctx context.Context, format string, args ...interface{}) {
	if !l.enabled(LevelDebug) {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(ctx context.Context, format string, args ...interface{}) {
	if !l.enabled(LevelInfo) {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(ctx context.Context, format string, args ...interface{}) {
	if !l.enabled(LevelWarn) {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(ctx context.Context, format string, args ...interface{}) {
	if !l.enabled(LevelError) {
		return
	}
	l.sugar.Errorf(format, args...)
}

// WithFields returns a new Logger whose entries carry fields in addition to
// whatever the parent already carries.
func (l *Logger) WithFields(fields map[string]interface{}) LoggerInterface {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		level: l.level,
		sugar: l.sugar.With(kv...),
	}
}

func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Hexdump renders data in the classic offset/column layout and logs it as a
// single TRACE-gated entry.
// Format: offset   00 01 02 03 04 05 06 07 | 08 09 0a 0b 0c 0d 0e 0f
func (l *Logger) Hexdump(ctx context.Context, data []byte) {
	if !l.enabled(LevelTrace) {
		return
	}

	var b strings.Builder
	b.WriteString("offset   00 01 02 03 04 05 06 07 | 08 09 0a 0b 0c 0d 0e 0f\n")
	for i := 0; i < len(data); i += 16 {
		fmt.Fprintf(&b, "%08x", i)
		for j := 0; j < 16; j++ {
			if j == 8 {
				b.WriteString(" |")
			}
			b.WriteByte(' ')
			if i+j < len(data) {
				fmt.Fprintf(&b, "%02x", data[i+j])
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}

	l.sugar.Debugw("hexdump", "dump", b.String())
}
