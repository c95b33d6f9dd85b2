package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "ACTORS_CONFIG", "TICK_INTERVAL", "NATS_URL", "SESSION_IDLE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LogLevel != zerolog.InfoLevel {
		t.Fatalf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.TickInterval != time.Second {
		t.Fatalf("TickInterval = %v, want 1s", cfg.TickInterval)
	}
	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Fatalf("SessionIdleTimeout = %v, want 30m", cfg.SessionIdleTimeout)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("NATSURL = %q, want empty", cfg.NATSURL)
	}

	reg, err := cfg.Registry()
	if err != nil || reg.Len() != 2 {
		t.Fatalf("Registry() = %v, %v; want default actors", reg, err)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "1500ms", want: 1500 * time.Millisecond},
		{name: "whole seconds", value: "3", want: 3 * time.Second},
		{name: "garbage", value: "soon", want: time.Second},
		{name: "negative", value: "-2s", want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TICK_INTERVAL", tt.value)
			if got := getEnvAsDuration("TICK_INTERVAL", time.Second); got != tt.want {
				t.Fatalf("getEnvAsDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actors.yaml")
	doc := "actors:\n  - key: a\n    url: /a/{w}/{h}\n  - key: b\n    url: /b/{w}/{h}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write actors file: %v", err)
	}

	t.Setenv("ACTORS_CONFIG", path)
	t.Setenv("LOG_LEVEL", "debug")
	cfg := FromEnv()
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() failed: %v", err)
	}
	if keys := reg.Keys(); len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("Keys() = %v, want [a b]", keys)
	}
}
