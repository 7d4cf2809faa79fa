package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type RotationConfig struct {
	// Rotate file outputs through lumberjack.
	Enable bool `mapstructure:"enable"`
	// Maximum size in megabytes before a file is rotated.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// Number of rotated files to keep.
	MaxBackups int `mapstructure:"max_backups"`
	// Days to keep rotated files.
	MaxAgeDays int `mapstructure:"max_age_days"`
	// Gzip rotated files.
	Compress bool `mapstructure:"compress"`
}

type Config struct {
	// Output format: "console" or "json".
	Format string `mapstructure:"format"`
	// Outputs: "stdout", "stderr" or file paths.
	Outputs []string `mapstructure:"outputs"`
	// File rotation settings.
	Rotation RotationConfig `mapstructure:"rotation"`
}

// Setup replaces the log sinks with the configured outputs.
// The level is left untouched.
func Setup(c Config) error {
	var encoder zapcore.Encoder
	switch strings.ToLower(c.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	var cores []zapcore.Core
	var closers []func() error

	for _, out := range outputs {
		var ws zapcore.WriteSyncer

		switch strings.ToLower(out) {
		case "stdout":
			ws = zapcore.Lock(os.Stdout)
		case "stderr":
			ws = zapcore.Lock(os.Stderr)
		default:
			if dir := filepath.Dir(out); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}

			if c.Rotation.Enable {
				logger := &lumberjack.Logger{
					Filename:   out,
					MaxSize:    max(c.Rotation.MaxSizeMB, 10),
					MaxBackups: max(c.Rotation.MaxBackups, 1),
					MaxAge:     max(c.Rotation.MaxAgeDays, 7),
					Compress:   c.Rotation.Compress,
				}
				closers = append(closers, logger.Close)
				ws = zapcore.AddSync(logger)
			} else {
				f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				closers = append(closers, f.Close)
				ws = zapcore.AddSync(f)
			}
		}

		cores = append(cores, zapcore.NewCore(encoder, ws, zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))

	std.mu.Lock()
	previous := std.closer
	std.sugar = logger.Sugar()
	std.closer = func() error {
		var first error
		for _, closer := range closers {
			if err := closer(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	std.mu.Unlock()

	if previous != nil {
		previous()
	}

	return nil
}

func (c *Config) Log() {
	Info("  Log configuration:")
	Infof("    format = %s", c.Format)
	Infof("    outputs = %v", c.Outputs)
	if c.Rotation.Enable {
		Infof("    rotation = %dMB x %d, %d days", c.Rotation.MaxSizeMB, c.Rotation.MaxBackups, c.Rotation.MaxAgeDays)
	}
}
