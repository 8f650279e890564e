package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firestige.xyz/pcapture/internal/config"
)

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if err != nil {
				t.Errorf("parseLevel(%q) returned error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "trace", "fatal", ""} {
		t.Run(input, func(t *testing.T) {
			if _, err := parseLevel(input); err == nil {
				t.Errorf("parseLevel(%q) should return error, got nil", input)
			}
		})
	}
}

func TestInitWritesToConsoleWriter(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	cfg := config.LogConfig{Level: "warn", Format: "json"}
	if err := InitWithWriter(cfg, &buf); err != nil {
		t.Fatalf("InitWithWriter failed: %v", err)
	}

	slog.Info("filtered message")
	slog.Warn("device read timed out", "device", "eth0")

	output := buf.String()
	if strings.Contains(output, "filtered message") {
		t.Error("Info message should be filtered out at warn level")
	}
	if !strings.Contains(output, `"msg":"device read timed out"`) {
		t.Errorf("JSON output should contain message field, got %q", output)
	}
	if !strings.Contains(output, `"device":"eth0"`) {
		t.Errorf("JSON output should contain device field, got %q", output)
	}
}

func TestInitTextFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if err := InitWithWriter(config.LogConfig{Level: "info", Format: "text"}, &buf); err != nil {
		t.Fatalf("InitWithWriter failed: %v", err)
	}
	slog.Info("capture started", "target", 10)

	if !strings.Contains(buf.String(), "target=10") {
		t.Errorf("Text output should contain target=10, got %q", buf.String())
	}
}

func TestInitWithFileOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logPath := filepath.Join(t.TempDir(), "test.log")
	cfg := config.LogConfig{
		Level:  "debug",
		Format: "text",
		File: config.FileOutputConfig{
			Enabled:    true,
			Path:       logPath,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}

	var buf bytes.Buffer
	if err := InitWithWriter(cfg, &buf); err != nil {
		t.Fatalf("InitWithWriter failed: %v", err)
	}
	slog.Info("test message", "key", "value")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Log file was not created at %s: %v", logPath, err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("Log file should contain message, got %q", string(data))
	}
}

func TestInitWithInvalidLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "invalid", Format: "json"})
	if err == nil {
		t.Fatal("Expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("Expected error about invalid log level, got: %v", err)
	}
}

func TestInitWithInvalidFormat(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", Format: "xml"})
	if err == nil {
		t.Fatal("Expected error for invalid log format, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported log format") {
		t.Errorf("Expected error about unsupported format, got: %v", err)
	}
}

func TestInitWithMissingFilePath(t *testing.T) {
	err := Init(config.LogConfig{
		Level:  "info",
		Format: "json",
		File:   config.FileOutputConfig{Enabled: true},
	})
	if err == nil {
		t.Fatal("Expected error for missing file path, got nil")
	}
	if !strings.Contains(err.Error(), "path") {
		t.Errorf("Expected error about missing path, got: %v", err)
	}
}

func TestCreateFileWriter(t *testing.T) {
	fc := config.FileOutputConfig{
		Enabled:   true,
		Path:      filepath.Join(t.TempDir(), "test.log"),
		MaxSizeMB: 10,
	}

	writer, err := createFileWriter(fc)
	if err != nil {
		t.Fatalf("createFileWriter failed: %v", err)
	}
	n, err := writer.Write([]byte("test"))
	if err != nil {
		t.Errorf("Write failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes written, got %d", n)
	}
}
