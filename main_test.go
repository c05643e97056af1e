package main

import (
	"crypto/tls"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := parseLogLevel(in)
		if err != nil {
			t.Fatalf("parseLogLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseLogLevel(%q): got %v want %v", in, got, want)
		}
	}

	if _, err := parseLogLevel("verbose"); err == nil {
		t.Fatalf("unknown level must be rejected")
	}
}

func TestMinTLSVersion(t *testing.T) {
	if got := minTLSVersion("1.3"); got != tls.VersionTLS13 {
		t.Fatalf("1.3: got %x", got)
	}
	if got := minTLSVersion("1.2"); got != tls.VersionTLS12 {
		t.Fatalf("1.2: got %x", got)
	}
	if got := minTLSVersion(""); got != tls.VersionTLS12 {
		t.Fatalf("default: got %x", got)
	}
}

func TestConfigInitAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := runConfigInit(path); err != nil {
		t.Fatalf("runConfigInit: %v", err)
	}
	if err := runConfigInit(path); err == nil {
		t.Fatalf("init must refuse to overwrite an existing file")
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.Server.DevMode {
		t.Fatalf("generated template should start in dev mode")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing config must be reported")
	}
}
