// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ehr/dashboard/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing JSON to stdout (a console writer in
// development) and, when LOG_FILE is set, to a size-rotated file as well.
// The returned closer flushes and closes the file sink.
func New(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	return build(cfg, os.Stdout)
}

func build(cfg *config.Config, stdout io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var console io.Writer = stdout
	if cfg.IsDev() {
		console = zerolog.ConsoleWriter{Out: stdout}
	}

	var closer io.Closer = nopCloser{}
	out := console
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		closer = file
		out = zerolog.MultiLevelWriter(console, file)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("service", "dashboard").Logger()
	return logger, closer, nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
