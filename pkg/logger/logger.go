// Package logger provides opinionated logging capabilities for chatline
package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a colored console logger writing to stdout.
func NewLogger(debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(os.Stdout), debug, zapcore.CapitalColorLevelEncoder)
}

// NewFileLogger returns a console logger appending to the file at path. The
// terminal client uses it since stdout belongs to the UI. An empty path
// discards all output.
func NewFileLogger(path string, debug bool) (*zap.Logger, func() error, error) {
	if path == "" {
		return zap.NewNop(), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return newLogger(zapcore.AddSync(f), debug, zapcore.CapitalLevelEncoder), f.Close, nil
}

// NewWriterLogger returns a plain console logger writing to w.
func NewWriterLogger(w io.Writer, debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(w), debug, zapcore.CapitalLevelEncoder)
}

func newLogger(sink zapcore.WriteSyncer, debug bool, levelEncoder zapcore.LevelEncoder) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = levelEncoder

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		sink,
		level,
	)

	return zap.New(core, zap.AddCaller())
}
