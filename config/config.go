// Package config provides configuration loading and management for
// techsift.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/techsift/techsift/platform"
)

// Config represents the complete techsift configuration
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Parse   ParseConfig   `yaml:"parse"`
	Export  ExportConfig  `yaml:"export"`
	Watch   WatchConfig   `yaml:"watch"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// InputConfig configures how capture files are read
type InputConfig struct {
	// FallbackEncoding decodes files that are not valid UTF-8
	// (default: latin-1)
	FallbackEncoding string `yaml:"fallback_encoding"`
	// Platform forces the platform instead of identifying it
	// (empty = identify from content)
	Platform string `yaml:"platform"`
}

// ParseConfig configures grammar dispatch
type ParseConfig struct {
	// Aliases adds per-platform command aliases on top of the
	// built-in set, mapping alias to canonical command
	Aliases map[string]map[string]string `yaml:"aliases,omitempty"`
}

// ExportConfig configures result output
type ExportConfig struct {
	// Format is the output format: table, csv, or json
	Format string `yaml:"format"`
	// Dir is where per-kind output files are written (csv)
	Dir string `yaml:"dir"`
}

// WatchConfig configures directory watching
type WatchConfig struct {
	// Dir is the directory to watch for new capture files
	Dir string `yaml:"dir"`
	// Patterns are glob patterns a file must match (empty = all)
	Patterns []string `yaml:"patterns"`
	// Debounce is how long a file must be quiet before processing,
	// as a duration string ("2s", "500ms")
	Debounce string `yaml:"debounce"`
}

// GetDebounce returns the debounce as a duration, falling back to
// the default for empty or unparseable values
func (c *WatchConfig) GetDebounce() time.Duration {
	if c.Debounce == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			FallbackEncoding: "latin-1",
		},
		Export: ExportConfig{
			Format: "table",
		},
		Watch: WatchConfig{
			Debounce: "2s",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Export.Format {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("export.format must be table, csv, or json, got %q", c.Export.Format)
	}
	if c.Input.Platform != "" {
		if !platform.Hinted(c.Input.Platform).IsIdentified() {
			return fmt.Errorf("input.platform %q is not a known platform", c.Input.Platform)
		}
	}
	if c.Watch.Debounce != "" {
		d, err := time.ParseDuration(c.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("watch.debounce %q is not a duration: %w", c.Watch.Debounce, err)
		}
		if d < 0 {
			return fmt.Errorf("watch.debounce must not be negative")
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence
// for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Input.FallbackEncoding != "" {
		c.Input.FallbackEncoding = other.Input.FallbackEncoding
	}
	if other.Input.Platform != "" {
		c.Input.Platform = other.Input.Platform
	}

	if len(other.Parse.Aliases) > 0 {
		if c.Parse.Aliases == nil {
			c.Parse.Aliases = make(map[string]map[string]string)
		}
		for p, aliases := range other.Parse.Aliases {
			if c.Parse.Aliases[p] == nil {
				c.Parse.Aliases[p] = make(map[string]string)
			}
			for alias, canonical := range aliases {
				c.Parse.Aliases[p][alias] = canonical
			}
		}
	}

	if other.Export.Format != "" {
		c.Export.Format = other.Export.Format
	}
	if other.Export.Dir != "" {
		c.Export.Dir = other.Export.Dir
	}

	if other.Watch.Dir != "" {
		c.Watch.Dir = other.Watch.Dir
	}
	if len(other.Watch.Patterns) > 0 {
		c.Watch.Patterns = other.Watch.Patterns
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
