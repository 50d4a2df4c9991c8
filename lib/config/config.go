// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the featured
// service.
//
// Configuration is loaded from a single file specified by:
//   - the FEATURED_CONFIG environment variable, or
//   - the --config flag passed to the binary.
//
// There are no fallbacks or automatic discovery; a missing file is an
// error. YAML is the primary format. Files ending in .json or .jsonc
// are parsed as JSON with comments, for operators who annotate their
// deployment files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the configuration for the featured service.
type Config struct {
	// Database configures the feature store.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Log configures operational logging.
	Log LogConfig `yaml:"log" json:"log"`
}

// DatabaseConfig configures the SQLite feature store.
type DatabaseConfig struct {
	// Path is the SQLite database file. The parent directory is
	// created on startup if missing.
	Path string `yaml:"path" json:"path"`

	// PoolSize is the connection pool size. Zero means the pool
	// default (max of NumCPU and 4).
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json". Default: text.
	Format string `yaml:"format" json:"format"`
}

// Default returns the default configuration. These defaults make a
// bare `featured` invocation work on a development machine; the config
// file overrides them.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(homeDir, ".local", "share", "featured", "features.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the FEATURED_CONFIG environment
// variable. Returns an error if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv("FEATURED_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("FEATURED_CONFIG environment variable not set; " +
			"set it to the path of your featured config file, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults. The config file is the single source of truth:
// environment variables do not override values, only ${VAR} expansion
// inside path fields is performed.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.Database.Path = expandVars(cfg.Database.Path)

	return cfg, nil
}

// expandVars expands ${VAR} and ${VAR:-default} patterns from the
// environment.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Database.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("database.pool_size must not be negative"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error"))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureDatabaseDir creates the parent directory of the database file
// if it does not exist.
func (c *Config) EnsureDatabaseDir() error {
	dir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", dir, err)
	}
	return nil
}
