package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger  = zerolog.Nop()
	logFile *os.File
)

// InitLogger opens a dated log file in dir. The TUI owns the terminal, so
// nothing is ever written to stdout or stderr.
func InitLogger(dir, level string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(dir, fmt.Sprintf("lawchat-%s.log", time.Now().Format("2006-01-02")))

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f

	SetOutput(f, level)
	logger.Info().Msg("=== Law Chat Log Started ===")

	return nil
}

// SetOutput points the logger at w; used by InitLogger and by tests
func SetOutput(w io.Writer, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger = zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child logger tagged with the component name
func WithComponent(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	logger.Debug().Msgf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	logger.Info().Msgf(format, v...)
}

// Warn logs a warning
func Warn(format string, v ...interface{}) {
	logger.Warn().Msgf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	logger.Error().Msgf(format, v...)
}

// Close closes the log file
func Close() {
	if logFile != nil {
		logger.Info().Msg("=== Law Chat Log Ended ===")
		logFile.Close()
		logFile = nil
	}
	logger = zerolog.Nop()
}
