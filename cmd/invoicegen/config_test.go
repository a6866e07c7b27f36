package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "listen: \":9090\"\ndatabase_path: /tmp/test.db\nmax_surfaces: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.MaxSurfaces != 4 {
		t.Errorf("MaxSurfaces = %d", cfg.MaxSurfaces)
	}
	// Unset keys keep their defaults.
	if cfg.DocumentDir != "documents" {
		t.Errorf("DocumentDir = %q", cfg.DocumentDir)
	}
}

func TestLoadConfigParsesTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeout: 2m\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
	}
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig() accepted an unparseable timeout")
	}
}

func TestLoadConfigExplicitMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("loadConfig() succeeded for missing explicit file")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listne: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig() accepted a misspelled key")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("INVOICEGEN_LISTEN", ":7070")
	t.Setenv("INVOICEGEN_TIMEOUT", "90s")
	t.Setenv("INVOICEGEN_BROWSER_BIN", "/usr/bin/chromium")

	cfg := defaultConfig()
	applyEnv(&cfg)

	if cfg.Listen != ":7070" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.BrowserBin != "/usr/bin/chromium" {
		t.Errorf("BrowserBin = %q", cfg.BrowserBin)
	}
}

func TestApplyEnvIgnoresInvalidTimeout(t *testing.T) {
	t.Setenv("INVOICEGEN_TIMEOUT", "soon")

	cfg := defaultConfig()
	applyEnv(&cfg)
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want unchanged default", cfg.Timeout)
	}
}
