package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the key/value logger handed to the batch driver, scheduler and
// web server. Core computation packages never receive one.
//
// Call sites use alternating key/value pairs:
//
//	logger.Info("calendar written", "path", out, "events", n)
//	logger.Error("person skipped", err, "person", name)
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a console logger writing to stderr. debug lowers the minimum
// level from INFO to DEBUG.
func New(debug bool) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return FromZap(z), nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

// FromZap wraps an existing zap logger. Tests use it with zaptest/observer.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{s: z.Sugar()}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.s.Debugw(msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.s.Infow(msg, kv...)
}

func (l *Logger) Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{zap.Error(err)}, kv...)
	l.s.Errorw(msg, extended...)
}

// With returns a child logger that adds kv to every entry.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{s: l.s.With(kv...)}
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored by
// callers on shutdown.
func (l *Logger) Sync() error {
	return l.s.Sync()
}
