// Package config loads server configuration from a YAML or JSON file.
// Everything has a default, so serve runs with no file at all.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Backend names the solver variant serving this process.
type Backend string

const (
	BackendSimulator Backend = "simulator"
	BackendHardware  Backend = "hardware"
)

// Config is the full server configuration.
type Config struct {
	// Backend selects the sampler: "simulator" (default) or "hardware".
	Backend Backend `yaml:"backend" json:"backend"`

	// Solver defaults applied when a solve_problem call omits them.
	DefaultNumReads      int `yaml:"default_num_reads" json:"default_num_reads"`
	DefaultAnnealingTime int `yaml:"default_annealing_time" json:"default_annealing_time"`

	// AnnealingTimeBudgetUS caps cumulative annealing time
	// (num_reads * annealing_time summed across solves). Zero = unlimited.
	AnnealingTimeBudgetUS int64 `yaml:"annealing_time_budget_us" json:"annealing_time_budget_us"`

	// SAPIBaseURL is the hardware solver endpoint; required for the
	// hardware backend.
	SAPIBaseURL string `yaml:"sapi_base_url" json:"sapi_base_url"`
	// SolverName selects a named remote solver (hardware backend only).
	SolverName string `yaml:"solver_name" json:"solver_name"`

	// DBPath enables the SQLite store when non-empty; default is in-memory.
	DBPath string `yaml:"db_path" json:"db_path"`

	// Seed makes the simulator deterministic when non-zero.
	Seed int64 `yaml:"seed" json:"seed"`

	// Logging.
	LogLevel  string `yaml:"log_level" json:"log_level"`   // debug, info, warn, error
	LogFormat string `yaml:"log_format" json:"log_format"` // text, json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend:              BackendSimulator,
		DefaultNumReads:      100,
		DefaultAnnealingTime: 20,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// LoadFromPath reads a config file (YAML or JSON, detected by extension or
// content) and overlays it on the defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config from bytes. ext is the file extension for a format hint;
// empty means detect from content (JSON starts with "{", else YAML).
func Load(data []byte, ext string) (*Config, error) {
	cfg := Default()

	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}

	useJSON := ext == ".json"
	if ext == "" {
		useJSON = strings.HasPrefix(strings.TrimSpace(string(data)), "{")
	}

	if useJSON {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSimulator, BackendHardware:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendSimulator, BackendHardware)
	}
	if c.Backend == BackendHardware && c.SAPIBaseURL == "" {
		return fmt.Errorf("hardware backend requires sapi_base_url")
	}
	if c.DefaultNumReads < 1 {
		return fmt.Errorf("default_num_reads must be >= 1, got %d", c.DefaultNumReads)
	}
	if c.DefaultAnnealingTime < 1 {
		return fmt.Errorf("default_annealing_time must be >= 1, got %d", c.DefaultAnnealingTime)
	}
	if c.AnnealingTimeBudgetUS < 0 {
		return fmt.Errorf("annealing_time_budget_us must be >= 0, got %d", c.AnnealingTimeBudgetUS)
	}
	return nil
}
