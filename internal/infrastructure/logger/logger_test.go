package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reelchat.log")

	log, err := NewLogger(Config{Level: "info", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	log.Info("hello from test")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(string(data), `"timestamp"`) {
		t.Errorf("json output should use timestamp key: %s", data)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	log, err := NewLogger(Config{Level: "loud", Format: "console", OutputPath: "stderr"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if log.Core().Enabled(-1) {
		t.Error("debug should be disabled when level is unparseable")
	}
}
