package config

import (
	"log/slog"
	"testing"
)

func TestTenantWhitelistParsing(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"123", 1},
		{"123;456", 2},
		{"123; 456 ;", 2},
		{";;", 0},
	}
	for _, tc := range cases {
		cfg := Config{Whitelist: tc.in}
		if got := len(cfg.TenantWhitelist()); got != tc.want {
			t.Errorf("TenantWhitelist(%q) has %d entries, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("GRLBOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without GRLBOT_TOKEN")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRLBOT_TOKEN", "tok")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8880" {
		t.Errorf("HTTPAddr = %q, want :8880", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}
