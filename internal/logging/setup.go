package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process logger.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger. Console output goes to w; when cfg.File is
// set every event is also appended to a rotating file. The returned closer
// releases the file.
func New(cfg Config, w io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var console io.Writer = w
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	out := console
	if cfg.File != "" {
		// Create log directory with secure permissions (0700 - owner only)
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		closer = fileWriter
		out = zerolog.MultiLevelWriter(console, fileWriter)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}
