package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func defaultConfig() *Config {
	return &Config{
		Env:             "development",
		IntakeDir:       "./incoming",
		HTTPAddr:        ":8080",
		Staleness:       60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Load builds a Config from defaultConfig() overridden by environment
// variables, matching the env-override-a-struct-of-defaults idiom used
// elsewhere in this codebase for process bootstrap settings.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("INTAKE_DIR")); v != "" {
		cfg.IntakeDir = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STALENESS")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STALENESS %q: %w", v, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("STALENESS must be positive, got %q", v)
		}
		cfg.Staleness = d
	}
	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		cfg.ShutdownTimeout = d
	}

	return cfg, nil
}
