// Package config loads configuration for the checkpoint engine.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the checkpoint engine.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	HTTP     HTTPConfig     `toml:"http"`
	Log      LogConfig      `toml:"log"`
	Breaker  BreakerConfig  `toml:"breaker"`
}

// DatabaseConfig holds the relational store connection details.
type DatabaseConfig struct {
	// Path is the SQLite database file path, or ":memory:" for an
	// ephemeral in-process database (tests and local smoke runs).
	Path string `toml:"path"`
}

// ServerConfig holds process identity metadata. It is not included in the
// /health response, which reports only a status field.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// HTTPConfig holds HTTP listener settings.
type HTTPConfig struct {
	// Host is the HTTP listen address (default: "0.0.0.0").
	Host string `toml:"host"`
	// Port is the HTTP listen port (default: 8088).
	Port string `toml:"port"`
	// CORSOrigins is a comma-separated list of allowed CORS origins (default: "*").
	CORSOrigins string `toml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// BreakerConfig holds process-wide failure tracker settings. Threshold and
// window are always taken from each definition; there are no defaults here.
type BreakerConfig struct {
	// ScanFallback forces the failure tracker to use the database scan
	// strategy instead of the in-memory counter, even within one process.
	// Useful for multi-instance deployments behind a shared database.
	ScanFallback bool `toml:"scan_fallback"`
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. CHECKPOINTENGINE_CONFIG environment variable
//  3. ./checkpointengine.toml (current directory)
//  4. ~/.config/checkpointengine/checkpointengine.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path: "checkpointengine.db",
		},
		Server: ServerConfig{
			Name:    "checkpointengine",
			Version: "0.1.0",
		},
		HTTP: HTTPConfig{
			Host:        "0.0.0.0",
			Port:        "8088",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
		Breaker: BreakerConfig{
			ScanFallback: false,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the TOML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil // no config file found; rely on defaults + env
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty string
// if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	// 1. Explicit path from --config flag
	if explicit != "" {
		return explicit // caller wants this file; let DecodeFile report if missing
	}

	// 2. CHECKPOINTENGINE_CONFIG env var
	if p := os.Getenv("CHECKPOINTENGINE_CONFIG"); p != "" {
		return p
	}

	// 3. ./checkpointengine.toml in current directory
	if _, err := os.Stat("checkpointengine.toml"); err == nil {
		return "checkpointengine.toml"
	}

	// 4. ~/.config/checkpointengine/checkpointengine.toml
	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/checkpointengine/checkpointengine.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("CHECKPOINTENGINE_DB_PATH", &c.Database.Path)

	envOverride("CHECKPOINTENGINE_HOST", &c.HTTP.Host)
	envOverride("CHECKPOINTENGINE_PORT", &c.HTTP.Port)
	envOverride("CHECKPOINTENGINE_CORS_ORIGINS", &c.HTTP.CORSOrigins)

	envOverride("CHECKPOINTENGINE_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("CHECKPOINTENGINE_BREAKER_SCAN_FALLBACK"); v != "" {
		c.Breaker.ScanFallback = v == "true" || v == "1"
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required: set database.path in config file, or CHECKPOINTENGINE_DB_PATH env var")
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("http port is required: set http.port in config file, or CHECKPOINTENGINE_PORT env var")
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
