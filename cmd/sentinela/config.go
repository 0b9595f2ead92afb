// Package main provides the Sentinela server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration. Duration fields are
// Go duration strings ("30m", "72h") parsed during validation.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Auth       AuthConfig       `yaml:"auth"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Notify     NotifyConfig     `yaml:"notify"`
	Verbose    bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Address        string `yaml:"address"`         // API listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
}

// DatabaseConfig contains CRM database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file path
}

// ClickHouseConfig contains login telemetry store settings. The
// security job is disabled when no addresses are configured.
type ClickHouseConfig struct {
	Addresses     []string `yaml:"addresses"`
	Database      string   `yaml:"database"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	Compression   bool     `yaml:"compression"`
	RetentionDays int      `yaml:"retention_days"`
}

// Enabled reports whether a telemetry store is configured.
func (c *ClickHouseConfig) Enabled() bool {
	return len(c.Addresses) > 0
}

// AuthConfig contains operator API authentication settings. Secrets
// come from the environment, never from the config file.
type AuthConfig struct {
	AccessTokenTTL string `yaml:"access_token_ttl"` // JWT lifetime (default: 15m)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"`
}

// SchedulerConfig contains evaluation pass intervals.
type SchedulerConfig struct {
	IntervalBusiness string `yaml:"interval_business"` // default: 30m
	IntervalSecurity string `yaml:"interval_security"` // default: 10m
}

// DedupConfig contains alert deduplication windows.
type DedupConfig struct {
	BusinessLookback string `yaml:"business_lookback"` // default: 72h
	SecurityLookback string `yaml:"security_lookback"` // default: 24h
}

// NotifyConfig contains outbound notification settings for
// critical-severity alerts.
type NotifyConfig struct {
	RatePerMinute int               `yaml:"rate_per_minute"` // default: 10
	BaseURL       string            `yaml:"base_url"`        // CRM web UI base for deep links
	Slack         SlackNotifyConfig `yaml:"slack"`
	Email         EmailNotifyConfig `yaml:"email"`
}

// SlackNotifyConfig contains Slack webhook settings.
type SlackNotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// EmailNotifyConfig contains SMTP settings.
type EmailNotifyConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"` // 465 for implicit TLS, 587 for STARTTLS
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/sentinela.db"
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "sentinela"
	}
	if c.Auth.AccessTokenTTL == "" {
		c.Auth.AccessTokenTTL = "15m"
	}
	if c.Auth.RateLimitPerIP == 0 {
		c.Auth.RateLimitPerIP = 5
	}
	if c.Scheduler.IntervalBusiness == "" {
		c.Scheduler.IntervalBusiness = "30m"
	}
	if c.Scheduler.IntervalSecurity == "" {
		c.Scheduler.IntervalSecurity = "10m"
	}
	if c.Dedup.BusinessLookback == "" {
		c.Dedup.BusinessLookback = "72h"
	}
	if c.Dedup.SecurityLookback == "" {
		c.Dedup.SecurityLookback = "24h"
	}
	if c.Notify.RatePerMinute == 0 {
		c.Notify.RatePerMinute = 10
	}
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

// Durations returns every parsed duration field. Call Validate first;
// it fails loudly on values this method would choke on.
type Durations struct {
	AccessTokenTTL   time.Duration
	IntervalBusiness time.Duration
	IntervalSecurity time.Duration
	BusinessLookback time.Duration
	SecurityLookback time.Duration
}

// ParseDurations parses every duration field in the configuration.
func (c *Config) ParseDurations() (*Durations, error) {
	d := &Durations{}
	var err error

	if d.AccessTokenTTL, err = parseDuration("auth.access_token_ttl", c.Auth.AccessTokenTTL); err != nil {
		return nil, err
	}
	if d.IntervalBusiness, err = parseDuration("scheduler.interval_business", c.Scheduler.IntervalBusiness); err != nil {
		return nil, err
	}
	if d.IntervalSecurity, err = parseDuration("scheduler.interval_security", c.Scheduler.IntervalSecurity); err != nil {
		return nil, err
	}
	if d.BusinessLookback, err = parseDuration("dedup.business_lookback", c.Dedup.BusinessLookback); err != nil {
		return nil, err
	}
	if d.SecurityLookback, err = parseDuration("dedup.security_lookback", c.Dedup.SecurityLookback); err != nil {
		return nil, err
	}

	return d, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := c.ParseDurations(); err != nil {
		return err
	}
	if c.Notify.Slack.Enabled && c.Notify.Slack.WebhookURL == "" {
		return fmt.Errorf("notify.slack.webhook_url is required when Slack is enabled")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" {
			return fmt.Errorf("notify.email.host is required when email is enabled")
		}
		if c.Notify.Email.From == "" {
			return fmt.Errorf("notify.email.from is required when email is enabled")
		}
		if len(c.Notify.Email.Recipients) == 0 {
			return fmt.Errorf("notify.email.recipients is required when email is enabled")
		}
	}
	return nil
}
