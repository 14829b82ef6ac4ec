package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .lockguard.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to lockguard! Let's configure the access-lock service.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Administrator allow-list.
	adminPrompt := promptui.Prompt{
		Label: "Administrator principals (comma-separated)",
		Validate: func(s string) error {
			if len(splitAndTrim(s)) == 0 {
				return fmt.Errorf("at least one administrator is required")
			}
			return nil
		},
	}
	adminStr, err := adminPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("admin list: %w", err)
	}
	cfg.Admins = splitAndTrim(adminStr)

	// 2. Lock duration.
	durationPrompt := promptui.Select{
		Label: "Default lock duration before auto-release",
		Items: []string{"1h", "4h", "8h", "24h"},
	}
	_, durationStr, err := durationPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("lock duration: %w", err)
	}
	cfg.LockDuration, _ = time.ParseDuration(durationStr)

	// 3. Listen port.
	portPrompt := promptui.Prompt{
		Label:   "Listen port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("port must be a number in 1..65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the SQLite database",
		Default: cfg.DataDir,
	}
	cfg.DataDir, err = dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 5. Mail-gateway webhook for challenge codes.
	webhookPrompt := promptui.Prompt{
		Label:   "Mail-gateway webhook URL for challenge codes (blank to disable)",
		Default: "",
	}
	cfg.Notify.WebhookURL, err = webhookPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("webhook url: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	configPath := ".lockguard.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string, trims whitespace, and
// drops empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
