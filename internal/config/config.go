// Package config loads covmark library settings from an optional YAML file
// layered under environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds library settings loaded from YAML and env.
type Config struct {
	// Enabled gates all hit recording and check verification. When false,
	// Hit is a no-op and guards are inert, so instrumented production
	// binaries pay nothing for the marks they carry.
	Enabled bool

	// StrictMarks makes opening a guard for a mark that was never declared
	// via Declare a test failure.
	StrictMarks bool

	// MetricsEnabled gates the prometheus counters in internal/telemetry.
	MetricsEnabled bool

	// LogLevel is the zap level for the library logger; see telemetry.NewLogger.
	LogLevel string
}

type fileConfig struct {
	Enabled     *bool  `yaml:"enabled"`
	StrictMarks *bool  `yaml:"strict_marks"`
	LogLevel    string `yaml:"log_level"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

var (
	getOnce sync.Once
	current *Config
)

// Get returns the process-wide configuration, loading it on first use.
// A broken config file falls back to defaults rather than failing: a test
// library must never abort the suite over its own configuration.
func Get() *Config {
	getOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
			applyEnv(cfg)
		}
		current = cfg
	})
	return current
}

// Default returns the built-in settings: enabled, nothing else on.
func Default() *Config {
	return &Config{Enabled: true}
}

// Load reads covmark.yaml from the working directory (path override via
// COVMARK_CONFIG), then applies env overrides. A missing file is not an
// error; the defaults apply.
func Load() (*Config, error) {
	path := os.Getenv("COVMARK_CONFIG")
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: get working directory: %w", err)
		}
		path = filepath.Join(cwd, "covmark.yaml")
	}
	cfg, err := loadFrom(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Enabled != nil {
		cfg.Enabled = *fc.Enabled
	}
	if fc.StrictMarks != nil {
		cfg.StrictMarks = *fc.StrictMarks
	}
	if fc.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *fc.Metrics.Enabled
	}
	cfg.LogLevel = fc.LogLevel
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if boolEnv("COVMARK_DISABLE") {
		cfg.Enabled = false
	}
	if boolEnv("COVMARK_STRICT") {
		cfg.StrictMarks = true
	}
	if boolEnv("COVMARK_METRICS") {
		cfg.MetricsEnabled = true
	}
	if v := strings.TrimSpace(os.Getenv("COVMARK_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
}

func boolEnv(name string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
