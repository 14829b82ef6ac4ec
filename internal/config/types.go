package config

import "time"

// NotifyConfig holds settings for challenge-code delivery.
type NotifyConfig struct {
	// WebhookURL is the platform mail-gateway endpoint that receives
	// (principal, code) payloads. Empty disables delivery.
	WebhookURL string `yaml:"webhook_url" koanf:"webhook_url"`
}

// Config is the top-level lockguard configuration, corresponding to .lockguard.yml.
type Config struct {
	Port    int    `yaml:"port" koanf:"port"`
	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	// Admins is the fixed allow-list of principals permitted to engage
	// or release the access lock.
	Admins []string `yaml:"admins" koanf:"admins"`

	// TrustedPrincipals are exempt from the second-factor challenge.
	// Empty by default: every admin is challenged.
	TrustedPrincipals []string `yaml:"trusted_principals" koanf:"trusted_principals"`

	// LockDuration is how long an engaged lock stays in force before it
	// auto-releases.
	LockDuration time.Duration `yaml:"lock_duration" koanf:"lock_duration"`

	// ChallengeTTL is how long a minted one-time code stays valid.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" koanf:"challenge_ttl"`

	// WarningWindow is how close to expiry the lock must be before
	// callers see a non-blocking expiring-soon warning.
	WarningWindow time.Duration `yaml:"warning_window" koanf:"warning_window"`

	Notify NotifyConfig `yaml:"notify" koanf:"notify"`

	LogLevel string `yaml:"log_level" koanf:"log_level"`
}
