// Package logger builds the zap loggers shared by the CLI, the web server and the TUI.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a config level name to a zap level. Unknown names are info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New returns a JSON production logger writing to stderr.
func New(level string) (*zap.Logger, error) {
	return build(level, []string{"stderr"})
}

// NewFile returns a JSON logger writing to path. Used where stdout/stderr
// belong to something else, such as the terminal UI.
func NewFile(level, path string) (*zap.Logger, error) {
	return build(level, []string{path})
}

func build(level string, outputs []string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = outputs
	config.ErrorOutputPaths = outputs

	log, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

func Nop() *zap.Logger {
	return zap.NewNop()
}
