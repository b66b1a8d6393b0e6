package util

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var currentLevel LogLevel = LogLevelInfo

var logger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "cursus-ack").Logger()
	logger.Store(&l)
}

func SetLevel(level LogLevel) {
	currentLevel = level
}

// SetOutput redirects all log output to w as JSON lines.
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Str("app", "cursus-ack").Logger()
	logger.Store(&l)
}

func Debug(format string, v ...interface{}) {
	if currentLevel <= LogLevelDebug {
		logger.Load().Debug().Msgf(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if currentLevel <= LogLevelInfo {
		logger.Load().Info().Msgf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if currentLevel <= LogLevelWarn {
		logger.Load().Warn().Msgf(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if currentLevel <= LogLevelError {
		logger.Load().Error().Msgf(format, v...)
	}
}

func Fatal(format string, v ...interface{}) {
	logger.Load().Error().Str("level_name", "fatal").Msgf(format, v...)
	os.Exit(1)
}
