// Package config loads auditor settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SamuelRCrider/legal-auditor/core"
)

// Store backends
const (
	StoreMemory        = "memory"
	StoreElasticsearch = "elasticsearch"
)

// Config holds every setting of the auditor process
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Audit     AuditConfig     `yaml:"audit"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Backend string `yaml:"backend"`
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
}

// AuditConfig configures the JSONL audit trail; an empty path disables it
type AuditConfig struct {
	Path          string `yaml:"path"`
	Level         string `yaml:"level"`
	RotationSize  int64  `yaml:"rotation_size"`
	RetentionDays int    `yaml:"retention_days"`
}

// ScannerConfig configures the detection engine
type ScannerConfig struct {
	// PolicyPath points at an optional YAML detection policy
	PolicyPath       string `yaml:"policy"`
	MaxScanSizeBytes int    `yaml:"max_scan_size_bytes"`
}

// RateLimitConfig configures the per-client API rate limit
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LogConfig configures operational logging
type LogConfig struct {
	Debug  bool   `yaml:"debug"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
		},
		Audit: AuditConfig{
			Level:         string(core.AuditLogLevelStandard),
			RetentionDays: 90,
		},
		Scanner: ScannerConfig{
			MaxScanSizeBytes: 10 * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			Requests: 120,
			Window:   time.Minute,
		},
		Log: LogConfig{
			Format: "text",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, core.NewError(core.ErrorCategoryConfig, "load config", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, core.NewError(core.ErrorCategoryConfig, "load config", fmt.Errorf("failed to parse %s: %w", path, err))
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from the environment. Setting
// ELASTICSEARCH_URL alone selects the elasticsearch backend.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ELASTICSEARCH_URL"); v != "" {
		c.Store.URL = v
		c.Store.Backend = StoreElasticsearch
	}
	if v := getenv("ELASTICSEARCH_API_KEY"); v != "" {
		c.Store.APIKey = v
	}
	if v := getenv("AUDITOR_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return core.Errorf(core.ErrorCategoryConfig, "load config", "invalid PORT %q", v)
		}
		c.Server.Port = port
	}
	if v := getenv("AUDITOR_AUDIT_LOG"); v != "" {
		c.Audit.Path = v
	}
	if v := getenv("AUDITOR_POLICY"); v != "" {
		c.Scanner.PolicyPath = v
	}
	return nil
}

// Validate checks settings that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StoreElasticsearch:
		if c.Store.URL == "" || c.Store.APIKey == "" {
			return core.Errorf(core.ErrorCategoryConfig, "validate config",
				"elasticsearch backend requires ELASTICSEARCH_URL and ELASTICSEARCH_API_KEY")
		}
	default:
		return core.Errorf(core.ErrorCategoryConfig, "validate config", "unknown store backend %q", c.Store.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return core.Errorf(core.ErrorCategoryConfig, "validate config", "port %d out of range", c.Server.Port)
	}

	switch core.AuditLogLevel(c.Audit.Level) {
	case core.AuditLogLevelMinimal, core.AuditLogLevelStandard, core.AuditLogLevelVerbose:
	default:
		return core.Errorf(core.ErrorCategoryConfig, "validate config", "unknown audit level %q", c.Audit.Level)
	}

	if c.RateLimit.Requests < 0 {
		return core.Errorf(core.ErrorCategoryConfig, "validate config", "rate limit must not be negative")
	}
	return nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
