package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 8787 {
		t.Errorf("expected default port 8787, got %d", cfg.Port)
	}
	if cfg.LockDuration != 4*time.Hour {
		t.Errorf("expected default lock_duration 4h, got %s", cfg.LockDuration)
	}
	if cfg.ChallengeTTL != 5*time.Minute {
		t.Errorf("expected default challenge_ttl 5m, got %s", cfg.ChallengeTTL)
	}
	if cfg.WarningWindow != 15*time.Minute {
		t.Errorf("expected default warning_window 15m, got %s", cfg.WarningWindow)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.lockguard.yml")

	original := DefaultConfig()
	original.Port = 9000
	original.Admins = []string{"alice", "bob"}
	original.TrustedPrincipals = []string{"alice"}
	original.LockDuration = 8 * time.Hour
	original.Notify.WebhookURL = "https://mail.internal/hooks/lockguard"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Port != original.Port {
		t.Errorf("port: got %d, want %d", loaded.Port, original.Port)
	}
	if loaded.LockDuration != original.LockDuration {
		t.Errorf("lock_duration: got %s, want %s", loaded.LockDuration, original.LockDuration)
	}
	if loaded.Notify.WebhookURL != original.Notify.WebhookURL {
		t.Errorf("webhook_url: got %q, want %q", loaded.Notify.WebhookURL, original.Notify.WebhookURL)
	}
	if len(loaded.Admins) != 2 || loaded.Admins[0] != "alice" || loaded.Admins[1] != "bob" {
		t.Errorf("admins: got %v, want [alice bob]", loaded.Admins)
	}
	if len(loaded.TrustedPrincipals) != 1 || loaded.TrustedPrincipals[0] != "alice" {
		t.Errorf("trusted_principals: got %v, want [alice]", loaded.TrustedPrincipals)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if cfg.Port != DefaultConfig().Port {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Admins = []string{"alice"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no admins", func(c *Config) { c.Admins = nil }, true},
		{"blank admin", func(c *Config) { c.Admins = []string{" "} }, true},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"bad port high", func(c *Config) { c.Port = 70000 }, true},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"zero lock duration", func(c *Config) { c.LockDuration = 0 }, true},
		{"zero challenge ttl", func(c *Config) { c.ChallengeTTL = 0 }, true},
		{"warning window too long", func(c *Config) { c.WarningWindow = c.LockDuration }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			cfg.Admins = append([]string(nil), valid.Admins...)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
