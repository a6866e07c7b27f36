package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brennholz24/invoicegen/internal/hints"
	"github.com/brennholz24/invoicegen/internal/yamlutil"
)

// serverConfig is the YAML-backed server configuration. Every field has
// a working default so the binary runs with no config file at all. The
// timeout travels as a duration string ("90s", "2m") and is parsed
// after unmarshalling.
type serverConfig struct {
	Listen       string `yaml:"listen"`
	DatabasePath string `yaml:"database_path"`
	DocumentDir  string `yaml:"document_dir"`
	TemplateDir  string `yaml:"template_dir"`
	BrowserBin   string `yaml:"browser_bin"`
	MaxSurfaces  int    `yaml:"max_surfaces"`
	RawTimeout   string `yaml:"timeout"`
	Debug        bool   `yaml:"debug"`

	Timeout time.Duration `yaml:"-"`
}

func defaultConfig() serverConfig {
	return serverConfig{
		Listen:       ":8080",
		DatabasePath: "invoicegen.db",
		DocumentDir:  "documents",
		Timeout:      60 * time.Second,
	}
}

// configSearchPaths lists where a config file is looked for when no
// --config flag is given, in priority order.
func configSearchPaths() []string {
	paths := []string{"invoicegen.yaml", ".invoicegen.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "invoicegen", "config.yaml"))
	}
	return paths
}

// loadConfig reads the server configuration. An explicit path that does
// not exist is an error; an absent implicit config falls back to
// defaults silently.
func loadConfig(explicitPath string) (serverConfig, error) {
	cfg := defaultConfig()

	path := explicitPath
	if path == "" {
		for _, candidate := range configSearchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicitPath != "" && os.IsNotExist(err) {
			return cfg, fmt.Errorf("config file not found: %s%s",
				explicitPath, hints.ForConfigNotFound(configSearchPaths()))
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.RawTimeout != "" {
		d, err := time.ParseDuration(cfg.RawTimeout)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid timeout %q in %s", cfg.RawTimeout, path)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// applyEnv layers INVOICEGEN_* environment overrides onto cfg.
func applyEnv(cfg *serverConfig) {
	if v := os.Getenv("INVOICEGEN_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("INVOICEGEN_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("INVOICEGEN_DOCUMENT_DIR"); v != "" {
		cfg.DocumentDir = v
	}
	if v := os.Getenv("INVOICEGEN_TEMPLATE_DIR"); v != "" {
		cfg.TemplateDir = v
	}
	if v := os.Getenv("INVOICEGEN_BROWSER_BIN"); v != "" {
		cfg.BrowserBin = v
	}
	if v := os.Getenv("INVOICEGEN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
}
