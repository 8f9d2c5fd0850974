package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beaconkit/beacon/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggingConfig
		wantErr bool
	}{
		{
			name: "default configuration",
			config: config.LoggingConfig{
				Level:       "info",
				Format:      "json",
				Output:      "stdout",
				Development: false,
			},
			wantErr: false,
		},
		{
			name: "development mode",
			config: config.LoggingConfig{
				Level:       "debug",
				Format:      "console",
				Output:      "stdout",
				Development: true,
			},
			wantErr: false,
		},
		{
			name: "stderr output",
			config: config.LoggingConfig{
				Level:  "warn",
				Format: "json",
				Output: "stderr",
			},
			wantErr: false,
		},
		{
			name: "invalid log level falls back to info",
			config: config.LoggingConfig{
				Level:  "chatty",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "empty output defaults to stdout",
			config: config.LoggingConfig{
				Level:  "info",
				Format: "json",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("NewLogger() returned nil logger")
			}
			if logger != nil {
				_ = logger.Sync()
			}
		})
	}
}

func TestLogger_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "beacon.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: logFile,
	})
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}

	logger.Info("agent ready")
	logger.Debug("should be filtered at info level")
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync() returned error: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %q", len(lines), string(data))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not valid JSON: %v", err)
	}
	if entry["msg"] != "agent ready" {
		t.Errorf("msg got %v, want %q", entry["msg"], "agent ready")
	}
	if entry["level"] != "info" {
		t.Errorf("level got %v, want %q", entry["level"], "info")
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}

	// Must be safe to use without any setup.
	logger.Info("discarded")
	logger.Error("also discarded")
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() on nop logger returned error: %v", err)
	}
}
