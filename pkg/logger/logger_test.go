package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestHelpersSafeBeforeInit(t *testing.T) {
	// Log defaults to a nop; logging before Init must not panic
	Debug("debug before init")
	Info("info before init")
	Warn("warn before init")
	Error("error before init")
	Sync()
}

func TestInit_UnknownLevelFallsBack(t *testing.T) {
	if err := Init("verbose", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Log == nil {
		t.Fatal("Init left the logger unset")
	}
	if !Log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("unknown level must fall back to info")
	}
	if Log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("unknown level must not enable debug")
	}
}

func TestInit_WritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	if err := Init("info", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Info("file sink check")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "file sink check") {
		t.Errorf("log entry missing from file: %q", data)
	}
}

func TestInit_BadLogFileFails(t *testing.T) {
	if err := Init("info", filepath.Join(t.TempDir(), "missing", "app.log")); err == nil {
		t.Error("expected error for unwritable log file path")
	}
}
