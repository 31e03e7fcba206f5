package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/config"
)

func TestBuild_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := build(&config.Config{Env: "production", LogLevel: "info"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()

	logger.Info().Str("k", "v").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "hello" || line["service"] != "dashboard" {
		t.Errorf("unexpected line %v", line)
	}
}

func TestBuild_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := build(&config.Config{Env: "production", LogLevel: "WARN"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", logger.GetLevel())
	}
}

func TestBuild_InvalidLevel(t *testing.T) {
	if _, _, err := build(&config.Config{LogLevel: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestBuild_ConsoleInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := build(&config.Config{Env: "development"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info().Msg("hello")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected console output in development, got %q", buf.String())
	}
}

func TestBuild_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.log")
	var buf bytes.Buffer
	logger, closer, err := build(&config.Config{
		Env:           "production",
		LogFile:       path,
		LogMaxSizeMB:  1,
		LogMaxBackups: 1,
		LogMaxAgeDays: 1,
	}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Warn().Msg("to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Errorf("expected the event in stdout and file; file=%q stdout=%q", data, buf.String())
	}
}
