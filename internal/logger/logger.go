// Package logger provides the process-wide logger for catalog-sync.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.SugaredLogger
	once sync.Once
)

// Initialize sets up the global logger. Safe to call more than once; only the
// first call takes effect. When debug is true the level drops to Debug and
// output switches to the development console encoder.
func Initialize(debug bool) {
	once.Do(func() {
		var cfg zap.Config
		if debug {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			// Fall back to a no-op logger rather than crashing the process
			// over logging setup.
			os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
			l = zap.NewNop()
		}
		log = l.Sugar()
	})
}

func ensure() *zap.SugaredLogger {
	if log == nil {
		Initialize(false)
	}
	return log
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { ensure().Debugf(format, args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { ensure().Infof(format, args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { ensure().Warnf(format, args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { ensure().Errorf(format, args...) }

// Info logs a message at info level.
func Info(args ...any) { ensure().Info(args...) }

// Warn logs a message at warn level.
func Warn(args ...any) { ensure().Warn(args...) }

// Error logs a message at error level.
func Error(args ...any) { ensure().Error(args...) }

// Fatalf logs a formatted message at fatal level and exits the process.
func Fatalf(format string, args ...any) { ensure().Fatalf(format, args...) }

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		_ = ensure().Sync()
	}
}
