// Package config loads solver tuning knobs from an optional JSON file, the
// way banshee-data-velocity.report/internal/config.LoadTuningConfig loads
// its TuningConfig: optional pointer fields so a partial file only
// overrides what it sets, a .json extension check, and a file-size cap.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Tuning carries the solver knobs that aren't worth their own CLI flag:
// every field is optional, and CLI flags (where given) override whatever
// a config file sets.
type Tuning struct {
	Workers   *int    `json:"workers,omitempty"`
	NodeLimit *int64  `json:"node_limit,omitempty"`
	Timeout   *string `json:"timeout,omitempty"` // duration string, e.g. "30s"
}

// Defaults returns a Tuning with every field nil; GetX methods fall back
// to the engine's own defaults in that case.
func Defaults() *Tuning {
	return &Tuning{}
}

// Load reads and validates a Tuning from a JSON file.
func Load(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config: file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: stat: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config: file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set fields are well-formed.
func (c *Tuning) Validate() error {
	if c.Workers != nil && *c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", *c.Workers)
	}
	if c.NodeLimit != nil && *c.NodeLimit < 0 {
		return fmt.Errorf("node_limit must be non-negative, got %d", *c.NodeLimit)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		if _, err := time.ParseDuration(*c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", *c.Timeout, err)
		}
	}
	return nil
}

// GetWorkers returns the configured worker count, or 0 (engine default)
// if unset.
func (c *Tuning) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetNodeLimit returns the configured node limit, or 0 (unlimited) if unset.
func (c *Tuning) GetNodeLimit() int64 {
	if c.NodeLimit == nil {
		return 0
	}
	return *c.NodeLimit
}

// GetTimeout parses and returns the configured timeout, or 0 (no timeout)
// if unset or unparseable.
func (c *Tuning) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}
