// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/featured-io/featured/cmd/featured/mcp"
	"github.com/featured-io/featured/lib/clock"
	"github.com/featured-io/featured/lib/config"
	"github.com/featured-io/featured/lib/feature"
	"github.com/featured-io/featured/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "featured:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		databasePath string
		logLevel     string
		logFormat    string
		showVersion  bool
	)
	pflag.StringVar(&configPath, "config", "", "path to config file (YAML or JSONC); defaults to $FEATURED_CONFIG")
	pflag.StringVar(&databasePath, "database", "", "SQLite database path (overrides config)")
	pflag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pflag.StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println("featured", version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if databasePath != "" {
		cfg.Database.Path = databasePath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDatabaseDir(); err != nil {
		return err
	}

	// Stdout carries the JSON-RPC stream; all logging goes to stderr.
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := feature.Open(feature.StoreConfig{
		Path:     cfg.Database.Path,
		PoolSize: cfg.Database.PoolSize,
		Clock:    clock.Real(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("closing store", "error", closeErr)
		}
	}()

	logger.Info("featured starting",
		"version", version.Short(),
		"database", cfg.Database.Path,
	)

	err = mcp.NewServer(store, logger).Run(ctx, os.Stdin, os.Stdout)
	if err != nil && ctx.Err() != nil {
		// Interrupted by signal: a clean shutdown, not a failure.
		logger.Info("shutting down")
		return nil
	}
	return err
}

// loadConfig resolves the configuration: an explicit --config path
// wins, then $FEATURED_CONFIG, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("FEATURED_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// newLogger builds the stderr slog logger from config.
func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, options)
	} else {
		handler = slog.NewTextHandler(os.Stderr, options)
	}
	return slog.New(handler), nil
}
