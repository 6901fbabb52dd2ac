package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Input.Strict {
		t.Error("Input.Strict should be false by default (best-effort ingestion)")
	}
	if cfg.Output.Places != 4 {
		t.Errorf("Output.Places = %d, want %d", cfg.Output.Places, 4)
	}
	if cfg.Output.SQLitePath != "" {
		t.Errorf("Output.SQLitePath = %q, want empty", cfg.Output.SQLitePath)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Serve.Addr != "127.0.0.1:8088" {
		t.Errorf("Serve.Addr = %q, want %q", cfg.Serve.Addr, "127.0.0.1:8088")
	}
	if !cfg.Serve.Metrics {
		t.Error("Serve.Metrics should be true by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadConfig(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_Overlay(t *testing.T) {
	path := writeConfig(t, `
[input]
strict = true

[output]
places = 2
sqlite_path = "/tmp/out.db"

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if !cfg.Input.Strict {
		t.Error("Input.Strict should be true")
	}
	if cfg.Output.Places != 2 {
		t.Errorf("Output.Places = %d, want 2", cfg.Output.Places)
	}
	if cfg.Output.SQLitePath != "/tmp/out.db" {
		t.Errorf("Output.SQLitePath = %q", cfg.Output.SQLitePath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Log.Format != "json" || cfg.Serve.Addr != "127.0.0.1:8088" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "[output\nplaces = 2"},
		{"unknown key", "[output]\ncolour = \"red\""},
		{"places range", "[output]\nplaces = 40"},
		{"bad level", "[log]\nlevel = \"loud\""},
		{"bad format", "[log]\nformat = \"xml\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfig_ValidationWrapsSentinel(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "[output]\nplaces = -1"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"", zapcore.WarnLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if err != nil {
				t.Fatalf("parseLevel(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := NewLogger(LogConfig{Level: "info", Format: format})
		if err != nil {
			t.Fatalf("NewLogger(%s) error: %v", format, err)
		}
		if !log.Core().Enabled(zapcore.InfoLevel) || log.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("%s logger has wrong level", format)
		}
	}
	if _, err := NewLogger(LogConfig{Level: "nope"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
