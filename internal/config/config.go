// Package config provides configuration management for the alert assistant.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration for the assistant.
type Config struct {
	// Alert data
	AlertsFile     string   `json:"alerts_file"`     // CSV file loaded by the reference executor
	KnownDatabases []string `json:"known_databases"` // identifier lexicon for the entity extractor

	// Query planning
	DefaultPageSize int `json:"default_page_size"` // LIST mode default when no limit resolved
	MaxPageSize     int `json:"max_page_size"`     // hard clamp on any resolved limit

	// Trust governor
	// VarianceTolerance is the relative variance above which a numeric claim
	// contradicts a previously stated value. Applies to values at or above
	// LargeCountThreshold; smaller values must match exactly.
	VarianceTolerance   float64 `json:"variance_tolerance"`
	LargeCountThreshold int     `json:"large_count_threshold"`

	// Sessions
	SessionTTL     time.Duration `json:"session_ttl"`
	HistoryLimit   int           `json:"history_limit"`
	TurnsPerMinute int           `json:"turns_per_minute"` // per-session rate limit
	TurnBurst      int           `json:"turn_burst"`

	// Health / metrics endpoint
	HealthPort      int    `json:"health_port"` // 0 disables the HTTP endpoint
	HealthBindAddr  string `json:"health_bind_addr"`
	MetricsEndpoint bool   `json:"metrics_endpoint"`

	// Observability
	EnableTracing  bool `json:"enable_tracing"`
	EnableAuditLog bool `json:"enable_audit_log"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"` // json or console

	// Shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// Load configuration from environment variables and an optional config file.
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		DefaultPageSize:     20,
		MaxPageSize:         200,
		VarianceTolerance:   0.05,
		LargeCountThreshold: 1000,
		SessionTTL:          30 * time.Minute,
		HistoryLimit:        10,
		TurnsPerMinute:      60,
		TurnBurst:           10,
		HealthBindAddr:      "127.0.0.1",
		EnableTracing:       true,
		EnableAuditLog:      true,
		LogLevel:            "info",
		LogFormat:           "json",
		ShutdownTimeout:     10 * time.Second,
	}

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Environment variables take precedence
	loadFromEnv(cfg)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	cleanPath := filepath.Clean(path)

	// Reject path traversal before touching the filesystem
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path is validated above
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return json.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("ALERTS_FILE"); v != "" {
		cfg.AlertsFile = v
	}
	if v := os.Getenv("ALERTS_KNOWN_DATABASES"); v != "" {
		cfg.KnownDatabases = splitList(v)
	}
	if v := os.Getenv("ALERTS_DEFAULT_PAGE_SIZE"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.DefaultPageSize = n
		}
	}
	if v := os.Getenv("ALERTS_MAX_PAGE_SIZE"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.MaxPageSize = n
		}
	}
	if v := os.Getenv("ALERTS_VARIANCE_TOLERANCE"); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			cfg.VarianceTolerance = f
		}
	}
	if v := os.Getenv("ALERTS_LARGE_COUNT_THRESHOLD"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.LargeCountThreshold = n
		}
	}
	if v := os.Getenv("ALERTS_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("ALERTS_TURNS_PER_MINUTE"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.TurnsPerMinute = n
		}
	}
	if v := os.Getenv("ALERTS_TURN_BURST"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.TurnBurst = n
		}
	}
	if v := os.Getenv("ALERTS_HEALTH_PORT"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.HealthPort = n
		}
	}
	if v := os.Getenv("ALERTS_HEALTH_BIND_ADDR"); v != "" {
		cfg.HealthBindAddr = v
	}
	if v := os.Getenv("ALERTS_METRICS_ENDPOINT"); v != "" {
		cfg.MetricsEndpoint = v == "true" || v == "1"
	}
	if v := os.Getenv("ALERTS_ENABLE_TRACING"); v != "" {
		cfg.EnableTracing = v == "true" || v == "1"
	}
	if v := os.Getenv("ALERTS_ENABLE_AUDIT_LOG"); v != "" {
		cfg.EnableAuditLog = v == "true" || v == "1"
	}
	if v := os.Getenv("ALERTS_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func parseInt(v string) (int, error) {
	var n int
	_, err := fmt.Sscanf(v, "%d", &n)
	return n, err
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DefaultPageSize <= 0 {
		return errors.New("default_page_size must be positive")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return errors.New("max_page_size must be at least default_page_size")
	}
	if c.VarianceTolerance < 0 || c.VarianceTolerance >= 1 {
		return errors.New("variance_tolerance must be in [0, 1)")
	}
	if c.LargeCountThreshold < 0 {
		return errors.New("large_count_threshold must be non-negative")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.TurnsPerMinute <= 0 {
		return errors.New("turns_per_minute must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}
