package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LOCKGUARD_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: LOCKGUARD_PORT -> port, etc.
	if err := k.Load(env.Provider("LOCKGUARD_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "LOCKGUARD_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validLogLevels is the set of recognized log_level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if len(c.Admins) == 0 {
		return fmt.Errorf("admins is required: at least one principal must be allowed to manage the lock")
	}
	for _, a := range c.Admins {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("admins must not contain blank entries")
		}
	}

	if c.LockDuration <= 0 {
		return fmt.Errorf("lock_duration must be positive")
	}
	if c.ChallengeTTL <= 0 {
		return fmt.Errorf("challenge_ttl must be positive")
	}
	if c.WarningWindow <= 0 {
		return fmt.Errorf("warning_window must be positive")
	}
	if c.WarningWindow >= c.LockDuration {
		return fmt.Errorf("warning_window (%s) must be shorter than lock_duration (%s)", c.WarningWindow, c.LockDuration)
	}

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	return nil
}
