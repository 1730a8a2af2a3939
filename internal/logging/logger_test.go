package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/i474232898/rainfall-data/internal/config"
)

func TestNewProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &config.AppConfig{AppEnv: "prod", LogLevel: slog.LevelInfo}, "1.2.3", "rainfall")
	logger.Info("hello", "rows", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if rec["app"] != "rainfall" || rec["version"] != "1.2.3" || rec["msg"] != "hello" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewDevWritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &config.AppConfig{AppEnv: "dev", LogLevel: slog.LevelDebug}, "dev", "rainfall")
	logger.Debug("details", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "details") || !strings.Contains(out, "key=value") {
		t.Fatalf("unexpected dev output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no color codes when not writing to a terminal, got %q", out)
	}
}

func TestIsTerminal(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("buffer reported as terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	if isTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}
