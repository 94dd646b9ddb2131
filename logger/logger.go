package logger

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	once         sync.Once
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// InitLogging configures the global logger once: stdout plus an optional
// append-only file, at the given level ("debug", "info", ...).
func InitLogging(level, logFilePath string) {
	once.Do(func() {
		writers := []io.Writer{os.Stdout}
		if logFilePath != "" {
			file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
			if err != nil {
				os.Stderr.WriteString("Failed to open log file: " + err.Error() + "\n")
			} else {
				writers = append(writers, file)
			}
		}

		lvl, err := zerolog.ParseLevel(level)
		if err != nil || lvl == zerolog.NoLevel {
			lvl = zerolog.InfoLevel
		}

		globalLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
			With().Timestamp().Logger().
			Level(lvl)
		log.Logger = globalLogger
	})
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &globalLogger
}

// WithFields returns ctx carrying a child of the global logger.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	l := globalLogger.With().Fields(fields).Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &globalLogger
	}
	return l
}
