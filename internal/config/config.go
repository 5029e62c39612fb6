// Package config provides configuration for the event ledger.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/devtrack/eventledger/internal/domain"
)

// Config holds the ledger configuration.
type Config struct {
	// Server settings
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Database
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:eventledger.db?cache=shared&mode=rwc"`

	// Retention
	RetentionPolicyPath    string `env:"RETENTION_POLICY_PATH"`
	RetentionIntervalHours int    `env:"RETENTION_INTERVAL_HOURS" envDefault:"0"`

	// Replay policy (rego file; built-in default when empty)
	ReplayPolicyPath string `env:"REPLAY_POLICY_PATH"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// LoadRetentionPolicy reads a retention policy from a YAML file, falling
// back to the built-in defaults when path is empty. Fields absent from the
// file keep their zero value, so a policy file can disable windows it does
// not want.
func LoadRetentionPolicy(path string) (domain.RetentionPolicy, error) {
	if path == "" {
		return domain.DefaultRetentionPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RetentionPolicy{}, fmt.Errorf("failed to read retention policy: %w", err)
	}
	var policy domain.RetentionPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return domain.RetentionPolicy{}, fmt.Errorf("failed to parse retention policy: %w", err)
	}
	return policy, nil
}

// LoadReplayPolicy reads the rego policy source, or returns fallback when
// path is empty.
func LoadReplayPolicy(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read replay policy: %w", err)
	}
	return string(data), nil
}
