// Package config holds the worker agent's bootstrap settings, read once at
// startup the same way the coordinator reads its own (env-override-a-
// struct-of-defaults), plus an optional YAML file for sites that prefer a
// checked-in file over per-host environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ServerURL is the coordinator's base URL, the worker CLI's single
	// positional argument.
	ServerURL string
	// JobsDir is the local staging directory for fetched/converted files.
	JobsDir string
	// PingInterval is how often the worker refreshes its heartbeat. It
	// must stay strictly below the coordinator's staleness bound; absent
	// an override, the worker uses the documented default of 29s for a
	// 60s bound (spec.md section 4.5).
	PingInterval time.Duration
}

// fileOverrides is the shape of the optional --config YAML file. Its
// fields mirror the environment overrides so either source can set the
// same settings; the file is applied first, then environment variables,
// so an operator can template a fleet-wide file and still override a
// single host with an env var.
type fileOverrides struct {
	JobsDir      string `yaml:"jobs_dir"`
	PingInterval string `yaml:"ping_interval"`
}

const defaultPingInterval = 29 * time.Second

// Load builds a Config for serverURL, applying an optional YAML file
// followed by environment overrides. configPath may be empty, in which
// case only environment variables are consulted.
func Load(serverURL, configPath string) (Config, error) {
	cfg := Config{
		ServerURL:    serverURL,
		JobsDir:      "./jobs",
		PingInterval: defaultPingInterval,
	}

	if configPath != "" {
		if err := applyFile(&cfg, configPath); err != nil {
			return Config{}, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("WORKER_JOBS_DIR")); v != "" {
		cfg.JobsDir = v
	}
	if v := strings.TrimSpace(os.Getenv("WORKER_PING_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PingInterval = d
		}
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read worker config %s: %w", path, err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("parse worker config %s: %w", path, err)
	}

	if overrides.JobsDir != "" {
		cfg.JobsDir = overrides.JobsDir
	}
	if overrides.PingInterval != "" {
		d, err := time.ParseDuration(overrides.PingInterval)
		if err != nil {
			return fmt.Errorf("worker config %s: invalid ping_interval %q: %w", path, overrides.PingInterval, err)
		}
		if d > 0 {
			cfg.PingInterval = d
		}
	}
	return nil
}
