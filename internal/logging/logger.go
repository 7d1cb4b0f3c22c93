// Package logging builds the process-wide zap logger. Besides the usual
// levels the system logs two tagged info events: "action" for every emulated
// interaction and "success" for completed tasks, so operator-facing output
// can be filtered without a separate level scheme.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"engagemon/internal/config"
)

// New builds a logger from config. File output is JSON, console output is
// the development encoder.
func New(cfg config.LoggingConfig, dataDir string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}

	var cores []zapcore.Core
	if cfg.Console {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level))
	}
	if cfg.File != "" {
		path := cfg.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dataDir, "logs", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(f), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// Action logs an emulated interaction.
func Action(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Info(msg, append([]zap.Field{zap.String("event", "action")}, fields...)...)
}

// Success logs a completed task.
func Success(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Info(msg, append([]zap.Field{zap.String("event", "success")}, fields...)...)
}
