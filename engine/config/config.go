// Package config implements the module's layered configuration:
// built-in defaults, overridden by an optional YAML file, overridden by
// environment variables, overridden by CLI flags — with the YAML layer
// hot-reloadable via fsnotify.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of service-side tunables.
type Config struct {
	Prefix            string        `yaml:"prefix"`
	Salt              string        `yaml:"salt"`
	RingDepth         int           `yaml:"ring_depth"`
	LogLevel          string        `yaml:"log_level"`
	MetricsListenAddr string        `yaml:"metrics_listen_addr"`
	DefaultTelemetryPeriod time.Duration `yaml:"default_telemetry_period"`
	DefaultFlushPeriod     time.Duration `yaml:"default_flush_period"`
}

// Defaults returns the built-in baseline configuration.
func Defaults() Config {
	return Config{
		Prefix:                 "frameipc",
		RingDepth:              128,
		LogLevel:               "info",
		MetricsListenAddr:      ":9090",
		DefaultTelemetryPeriod: 16 * time.Millisecond,
		DefaultFlushPeriod:     time.Second,
	}
}

// LoadYAMLFile overlays cfg with values found in path. A missing file
// is not an error (the layer simply contributes nothing); a malformed
// file is.
func LoadYAMLFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv overlays cfg with recognized FRAMEIPC_* environment
// variables.
func LoadEnv(cfg Config) Config {
	if v, ok := os.LookupEnv("FRAMEIPC_PREFIX"); ok {
		cfg.Prefix = v
	}
	if v, ok := os.LookupEnv("FRAMEIPC_SALT"); ok {
		cfg.Salt = v
	}
	if v, ok := os.LookupEnv("FRAMEIPC_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("FRAMEIPC_METRICS_LISTEN_ADDR"); ok {
		cfg.MetricsListenAddr = v
	}
	if v, ok := os.LookupEnv("FRAMEIPC_RING_DEPTH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RingDepth = n
		}
	}
	return cfg
}
