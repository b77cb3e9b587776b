// Package config provides configuration structures for the parity harness CLI.
package config

import "fmt"

// Config represents the harness configuration.
type Config struct {
	// Engine settings
	Database   string `yaml:"database" json:"database"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
	ScratchDir string `yaml:"scratch_dir" json:"scratch_dir"`

	// Report output: empty writes the human summary to stdout, a path writes
	// the full JSON report there as well.
	ReportPath string `yaml:"report_path" json:"report_path"`

	// Comparator settings
	AbsTolerance  float64 `yaml:"abs_tolerance" json:"abs_tolerance"`
	RelTolerance  float64 `yaml:"rel_tolerance" json:"rel_tolerance"`
	MaxMismatches int     `yaml:"max_mismatches" json:"max_mismatches"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// Validate validates the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", c.LogLevel)
	}

	if c.AbsTolerance < 0 {
		return fmt.Errorf("abs tolerance must be non-negative")
	}
	if c.RelTolerance < 0 {
		return fmt.Errorf("rel tolerance must be non-negative")
	}
	if c.AbsTolerance == 0 {
		c.AbsTolerance = 1e-12
	}
	if c.RelTolerance == 0 {
		c.RelTolerance = 1e-7
	}
	if c.MaxMismatches <= 0 {
		c.MaxMismatches = 100
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database:      "",
		LogLevel:      "info",
		AbsTolerance:  1e-12,
		RelTolerance:  1e-7,
		MaxMismatches: 100,
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
			Path:    "/metrics",
		},
	}
}
