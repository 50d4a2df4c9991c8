// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/featured-io/featured/lib/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "featured.yaml", `
database:
  path: /var/lib/featured/features.db
  pool_size: 2
log:
  level: debug
  format: json
`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Database.Path != "/var/lib/featured/features.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Database.PoolSize != 2 {
		t.Errorf("Database.PoolSize = %d, want 2", cfg.Database.PoolSize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadJSONCWithComments(t *testing.T) {
	path := writeFile(t, "featured.jsonc", `{
	// deployment database lives on the data volume
	"database": {"path": "/data/features.db"},
	"log": {"level": "warn"}
}`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.Path != "/data/features.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want default text", cfg.Log.Format)
	}
}

func TestLoadExpandsPathVariables(t *testing.T) {
	t.Setenv("FEATURED_TEST_DATA", "/srv/featured")
	path := writeFile(t, "featured.yaml", `
database:
  path: ${FEATURED_TEST_DATA}/features.db
`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.Path != "/srv/featured/features.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = ""
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation errors")
	}
}

func TestLoadMissingEnvVar(t *testing.T) {
	t.Setenv("FEATURED_CONFIG", "")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when FEATURED_CONFIG is unset")
	}
}
