// Package config loads the daemon configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration, loaded from a YAML file.
// Zero-value fields fall back to the defaults below.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// Tenant scopes all playbook storage. Single-user installs keep
	// the default.
	Tenant string `yaml:"tenant"`

	// PlaybooksDir holds CUE playbook definition files loaded at startup
	// alongside the stored definitions. Empty disables file loading.
	PlaybooksDir string `yaml:"playbooks_dir"`

	// WebhookTimeout bounds each webhook action call.
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`

	// StaleGrace is how old a running execution record must be before
	// the startup sweep marks it failed.
	StaleGrace time.Duration `yaml:"stale_grace"`

	// Timezone names the IANA location used for time and context
	// triggers. Empty means the system local zone.
	Timezone string `yaml:"timezone"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database:       "reflex.db",
		Tenant:         "default",
		WebhookTimeout: 10 * time.Second,
		StaleGrace:     5 * time.Minute,
	}
}

// Load reads and validates a YAML config file, filling unset fields
// with defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, fills defaults, and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: database path is required")
	}
	if c.Tenant == "" {
		c.Tenant = "default"
	}
	if c.WebhookTimeout < 0 {
		return fmt.Errorf("config: webhook_timeout must not be negative")
	}
	if c.WebhookTimeout == 0 {
		c.WebhookTimeout = Default().WebhookTimeout
	}
	if c.StaleGrace < 0 {
		return fmt.Errorf("config: stale_grace must not be negative")
	}
	if c.StaleGrace == 0 {
		c.StaleGrace = Default().StaleGrace
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// Location resolves the configured timezone, defaulting to local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
