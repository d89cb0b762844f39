// Package config loads flakewatch configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration.
type Config struct {
	// ResultsDir is where the file store keeps its snapshot files.
	ResultsDir string `yaml:"results_dir"`
	// DatabaseURL, when set, selects the Postgres store over the file store.
	DatabaseURL string `yaml:"database_url"`
	// Listen is the HTTP API listen address.
	Listen string `yaml:"listen"`
	// HistoryCapacity bounds each test's run history.
	HistoryCapacity int `yaml:"history_capacity"`
	// FlakyThreshold is the score at or above which a test counts as flaky.
	FlakyThreshold float64 `yaml:"flaky_threshold"`
	// AnalysisDays is the default trailing window for flakiness analysis.
	AnalysisDays int `yaml:"analysis_days"`
	// MinRuns is how many observations a test needs before it is scored.
	MinRuns int `yaml:"min_runs"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ResultsDir:      "results",
		Listen:          ":8080",
		HistoryCapacity: 10,
		FlakyThreshold:  70,
		AnalysisDays:    30,
		MinRuns:         3,
	}
}

// Load reads configuration from path (if non-empty), then applies
// environment overrides. A missing file is an error only when it was
// explicitly requested.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FLAKEWATCH_RESULTS_DIR"); v != "" {
		cfg.ResultsDir = v
	}
	if v := os.Getenv("FLAKEWATCH_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("FLAKEWATCH_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("FLAKEWATCH_HISTORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryCapacity = n
		}
	}
}

func (c *Config) validate() error {
	if c.ResultsDir == "" && c.DatabaseURL == "" {
		return fmt.Errorf("either results_dir or database_url must be set")
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("history_capacity must be at least 1, got %d", c.HistoryCapacity)
	}
	if c.FlakyThreshold < 0 || c.FlakyThreshold > 100 {
		return fmt.Errorf("flaky_threshold must be between 0 and 100, got %v", c.FlakyThreshold)
	}
	if c.MinRuns < 1 {
		return fmt.Errorf("min_runs must be at least 1, got %d", c.MinRuns)
	}
	return nil
}
