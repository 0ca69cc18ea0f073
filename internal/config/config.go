// Package config loads the YAML run configuration named in
// SPEC_FULL.md §6, mirroring config/config.go's Unmarshal/
// LoadConfigFile/validate shape from the teacher repo.
package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config mirrors the CLI flags in SPEC_FULL.md §6, so a run can be
// pinned to a file instead of (or alongside) flags.
type Config struct {
	Strip            int           `yaml:"strip"`
	FromTime         string        `yaml:"from_time"` // RFC3339; parsed by FromTimeValue
	ForceDates       bool          `yaml:"force_dates"`
	BranchOrder      bool          `yaml:"branch_order"`
	Reposurgeon      bool          `yaml:"reposurgeon"`
	RevisionMap      string        `yaml:"revision_map"`
	CommitTimeWindow time.Duration `yaml:"commit_time_window"`
	BranchPrefix     string        `yaml:"branch_prefix"`
	AuthorMap        string        `yaml:"authormap"`
	Workers          int           `yaml:"workers"`
}

// Unmarshal parses a YAML run configuration, applying the same
// defaults main.go's flags otherwise would.
func Unmarshal(content []byte) (*Config, error) {
	cfg := &Config{
		BranchPrefix:     "refs/heads/",
		CommitTimeWindow: 3 * time.Second,
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a run configuration file.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	cfg, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// FromTimeValue parses the configured cutoff, returning the zero
// time.Time (which disables incremental export) when unset.
func (c *Config) FromTimeValue() (time.Time, error) {
	if c.FromTime == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.FromTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: invalid from_time %q: %w", c.FromTime, err)
	}
	return t, nil
}

func (c *Config) validate() error {
	if c.Strip < 0 {
		return fmt.Errorf("config: strip must be >= 0, got %d", c.Strip)
	}
	if c.CommitTimeWindow < 0 {
		return fmt.Errorf("config: commit_time_window must be >= 0, got %s", c.CommitTimeWindow)
	}
	if c.FromTime != "" {
		if _, err := time.Parse(time.RFC3339, c.FromTime); err != nil {
			return fmt.Errorf("config: invalid from_time %q: %w", c.FromTime, err)
		}
	}
	return nil
}
