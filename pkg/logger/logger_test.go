package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Str("query", "ping").Msg("hello")

	line := buf.String()
	for _, want := range []string{`"level":"info"`, `"time":`, `"caller":`, `logger_test.go`, `"message":"hello"`, `"query":"ping"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestInit_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Msg("dropped")
	Warn().Msg("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn line missing")
	}
}

func TestInit_File(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "api.log")
	Init(Config{Format: "console", Output: &console, File: path, MaxSizeMB: 1, MaxBackups: 1})

	Error().Msg("to both")
	Init(Config{})

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"message":"to both"`) {
		t.Errorf("file = %s", content)
	}
	if !strings.Contains(console.String(), "to both") {
		t.Errorf("console = %s", console.String())
	}
}

func TestCtx_RequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	ctx := WithRequestID(context.Background(), "req-42")
	Ctx(ctx).Info().Msg("scoped")
	Ctx(context.Background()).Info().Msg("global")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"request_id":"req-42"`) {
		t.Errorf("scoped line = %s", lines[0])
	}
	if strings.Contains(lines[1], "request_id") {
		t.Errorf("global line = %s", lines[1])
	}
}
