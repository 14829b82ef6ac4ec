package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:          8787,
		DataDir:       "data",
		LockDuration:  4 * time.Hour,
		ChallengeTTL:  5 * time.Minute,
		WarningWindow: 15 * time.Minute,
		LogLevel:      "info",
	}
}
