package telemetry

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// current is the logger guard events are traced to. Nil means tracing is off,
// which is the default; suites opt in via covmark.SetLogger.
var current atomic.Pointer[zap.Logger]

// NewLogger builds a production zap logger for covmark tracing. Level comes
// from COVMARK_LOG_LEVEL (default info).
func NewLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = parseLogLevel(os.Getenv("COVMARK_LOG_LEVEL"))

	return config.Build()
}

func parseLogLevel(s string) zap.AtomicLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "WARN":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "ERROR":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

// SetLogger installs the logger guard events are traced to. Pass nil to turn
// tracing off.
func SetLogger(l *zap.Logger) {
	current.Store(l)
}

// Logger returns the installed logger, or nil when tracing is off.
func Logger() *zap.Logger {
	return current.Load()
}

// TraceGuardOpened logs a guard opening at debug level.
func TraceGuardOpened(checkID, mark, want string) {
	if l := current.Load(); l != nil {
		l.Debug("guard opened",
			zap.String("check_id", checkID),
			zap.String("mark", mark),
			zap.String("want", want),
		)
	}
}

// TraceGuardClosed logs a guard closing at debug level.
func TraceGuardClosed(checkID, mark string, hits int, outcome string) {
	if l := current.Load(); l != nil {
		l.Debug("guard closed",
			zap.String("check_id", checkID),
			zap.String("mark", mark),
			zap.Int("hits", hits),
			zap.String("outcome", outcome),
		)
	}
}

// TraceHit logs a recorded hit at debug level.
func TraceHit(mark string) {
	if l := current.Load(); l != nil {
		l.Debug("mark hit", zap.String("mark", mark))
	}
}
