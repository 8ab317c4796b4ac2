package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestValidateConfig(t *testing.T) {
	file := FileConfig{Path: "/tmp/apcupsd-exporter-test.log", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 7}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "stdout", cfg: Config{Level: "info", Output: "stdout"}},
		{name: "console alias", cfg: Config{Level: "info", Output: "console"}},
		{name: "stderr json", cfg: Config{Level: "info", Output: "stderr", Format: "json"}},
		{name: "file", cfg: Config{Level: "info", Output: "file", File: file}},
		{name: "both", cfg: Config{Level: "info", Output: "both", File: file}},
		{name: "unknown output", cfg: Config{Level: "info", Output: "syslog"}, wantErr: true},
		{name: "unknown format", cfg: Config{Level: "info", Output: "stdout", Format: "logfmt"}, wantErr: true},
		{name: "file without path", cfg: Config{Output: "file", File: FileConfig{MaxSizeMB: 10}}, wantErr: true},
		{name: "zero max size", cfg: Config{Output: "file", File: FileConfig{Path: "/tmp/x.log"}}, wantErr: true},
		{name: "negative backups", cfg: Config{Output: "both", File: FileConfig{Path: "/tmp/x.log", MaxSizeMB: 1, MaxBackups: -1}}, wantErr: true},
		{name: "negative age", cfg: Config{Output: "file", File: FileConfig{Path: "/tmp/x.log", MaxSizeMB: 1, MaxAgeDays: -1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"trace", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := parseLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestInitializeRejectsBadConfig(t *testing.T) {
	if err := Initialize(Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := Initialize(Config{Level: "info", Output: "nowhere"}); err == nil {
		t.Error("expected error for unknown output")
	}
}

func TestInitializeJSONFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "exporter.log")

	err := Initialize(Config{
		Level:  "debug",
		Output: "file",
		Format: "json",
		File:   FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
	})
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	Info("fetched snapshot", String("addr", "localhost:3551"), Int("keys", 42), Duration("took", 15*time.Millisecond))
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}

	line := strings.TrimSpace(strings.Split(string(data), "\n")[0])
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q: %v", line, err)
	}
	if entry["msg"] != "fetched snapshot" {
		t.Errorf("msg = %v, want 'fetched snapshot'", entry["msg"])
	}
	if entry["addr"] != "localhost:3551" {
		t.Errorf("addr = %v, want localhost:3551", entry["addr"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "warn.log")

	err := Initialize(Config{
		Level:  "warn",
		Output: "file",
		File:   FileConfig{Path: logFile, MaxSizeMB: 1},
	})
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	Debug("hidden debug")
	Info("hidden info")
	Warn("visible warn")
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn were written: %s", out)
	}
	if !strings.Contains(out, "visible warn") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestFallbackWhenFileUnavailable(t *testing.T) {
	// A regular file where the log directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Initialize(Config{
		Level:  "info",
		Output: "both",
		File:   FileConfig{Path: filepath.Join(blocker, "sub", "x.log"), MaxSizeMB: 1},
	})
	if err != nil {
		t.Fatalf("Initialize() should fall back in 'both' mode, got: %v", err)
	}
	Info("still logging")
}

func TestHelpers(t *testing.T) {
	if err := Initialize(Config{Level: "debug", Output: "stdout"}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if f := String("key", "value"); f.Key != "key" {
		t.Errorf("String() key = %v", f.Key)
	}
	if f := Uint16("port", 3551); f.Key != "port" {
		t.Errorf("Uint16() key = %v", f.Key)
	}
	if f := Bool("strip_units", true); f.Key != "strip_units" {
		t.Errorf("Bool() key = %v", f.Key)
	}
	if GetLogger() == nil {
		t.Error("GetLogger() returned nil")
	}
	if Named("poller") == nil {
		t.Error("Named() returned nil")
	}
	Infof("printf %d", 1)
}
