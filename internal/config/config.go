// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package config loads and validates the Querylens server configuration.
//
// Configuration is layered with koanf: struct defaults, then an optional
// YAML file, then environment variables. Precedence is ENV > file >
// defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Querylens server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	AI       AIConfig       `koanf:"ai"`
	Cache    CacheConfig    `koanf:"cache"`
	History  HistoryConfig  `koanf:"history"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig holds the embedded DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file location; ":memory:" runs fully in memory.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB's memory use, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker thread count; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`

	// SeedDemoData creates and populates the demo analytics tables on
	// startup when they are empty.
	SeedDemoData bool `koanf:"seed_demo_data"`
}

// AIConfig holds the natural-language-to-SQL generator settings. The
// endpoint speaks the OpenAI chat-completions wire format.
type AIConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Endpoint          string        `koanf:"endpoint"`
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	MaxTokens         int           `koanf:"max_tokens"`
}

// CacheConfig holds query result cache settings.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// HistoryConfig holds the query audit trail settings.
type HistoryConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path is the BadgerDB directory for audit records.
	Path string `koanf:"path"`

	// Retention is how long audit records are kept.
	Retention time.Duration `koanf:"retention"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// RateLimitRequests/RateLimitWindow bound per-client request rates on
	// the query endpoints.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.AI.Enabled {
		if c.AI.Endpoint == "" {
			return fmt.Errorf("ai.endpoint must be set when ai.enabled is true")
		}
		if c.AI.Model == "" {
			return fmt.Errorf("ai.model must be set when ai.enabled is true")
		}
		if c.AI.RequestsPerMinute <= 0 {
			return fmt.Errorf("ai.requests_per_minute must be positive, got %d", c.AI.RequestsPerMinute)
		}
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must be set when history.enabled is true")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes invalid: default=%d max=%d", c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	return nil
}
