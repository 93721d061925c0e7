// logging.go
// ----------
// Logger construction for programs embedding the client. The client itself
// only requires a zerolog.Logger via WithLogger; this helper builds one
// from LogConfig with console output and optional rotating file output.
package apibridge

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig configures logger construction via NewLogger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
	// File enables rotating file output when non-empty.
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" validate:"min=0"`
}

// DefaultLogConfig returns console logging at info level.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		MaxSizeMB:  100,
		MaxBackups: 3,
	}
}

// NewLogger builds a zerolog logger from the configuration.
func NewLogger(cfg LogConfig) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
		level = parsed
	}

	var writers []io.Writer
	if cfg.Format == "json" {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
