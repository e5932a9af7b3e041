package config

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/gyeh/diabwh/internal/calendar"
	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/normalize"
	"github.com/gyeh/diabwh/internal/simulate"

	"gopkg.in/yaml.v3"
)

// Sink names.
const (
	SinkPostgres = "postgres"
	SinkParquet  = "parquet"
)

// Config holds all runtime configuration for a dwload run.
type Config struct {
	DSN        string
	FilePath   string
	LogFormat  string // "text" or "json"
	LogLevel   string
	Seed       int64
	Workers    int
	Sink       string // SinkPostgres or SinkParquet
	OutDir     string // target directory for SinkParquet
	BMIScale   float64
	Simulation simulate.Params
	Window     calendar.Window
}

// Default returns a Config with the stock simulation and window settings.
func Default() Config {
	return Config{
		LogFormat:  "text",
		LogLevel:   "info",
		Seed:       42,
		Workers:    runtime.NumCPU(),
		Sink:       SinkPostgres,
		BMIScale:   1,
		Simulation: simulate.DefaultParams(),
		Window:     calendar.DefaultWindow(),
	}
}

// yamlConfig is the on-disk YAML structure. Absent keys keep the current
// value.
type yamlConfig struct {
	Seed       *int64          `yaml:"seed"`
	Workers    *int            `yaml:"workers"`
	BMIScale   *float64        `yaml:"bmi_scale"`
	Simulation simulate.Params `yaml:"simulation"`
	Window     struct {
		Start        string `yaml:"start"`
		Years        *int   `yaml:"years"`
		Distribution string `yaml:"distribution"`
	} `yaml:"window"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Only parse errors are reported here; values are checked by Validate once
// command-line overrides have been applied.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	yc := yamlConfig{Simulation: c.Simulation}
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if yc.Seed != nil {
		c.Seed = *yc.Seed
	}
	if yc.Workers != nil {
		c.Workers = *yc.Workers
	}
	if yc.BMIScale != nil {
		c.BMIScale = *yc.BMIScale
	}
	c.Simulation = yc.Simulation
	if yc.Window.Start != "" {
		start := normalize.ParseDate(yc.Window.Start)
		if start == nil {
			return &dwerr.ConfigError{Field: "window.start", Reason: fmt.Sprintf("unparseable date %q", yc.Window.Start)}
		}
		c.Window.Start = *start
	}
	if yc.Window.Years != nil {
		c.Window.Years = *yc.Window.Years
	}
	if yc.Window.Distribution != "" {
		c.Window.Distribution = yc.Window.Distribution
	}
	return nil
}

// validateSettings checks everything that does not depend on the input
// file or the sink.
func (c *Config) validateSettings() error {
	if c.Workers < 1 {
		return &dwerr.ConfigError{Field: "workers", Reason: fmt.Sprintf("must be >= 1, got %d", c.Workers)}
	}
	if math.IsNaN(c.BMIScale) || c.BMIScale <= 0 {
		return &dwerr.ConfigError{Field: "bmi_scale", Reason: fmt.Sprintf("must be positive, got %v", c.BMIScale)}
	}
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	return c.Window.Validate()
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return &dwerr.ConfigError{Field: "file", Reason: "--file is required"}
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return &dwerr.ConfigError{Field: "file", Reason: fmt.Sprintf("not accessible: %v", err)}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &dwerr.ConfigError{Field: "log-format", Reason: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}
	switch c.Sink {
	case SinkPostgres:
	case SinkParquet:
		if c.OutDir == "" {
			return &dwerr.ConfigError{Field: "out", Reason: "--out is required for the parquet sink"}
		}
	default:
		return &dwerr.ConfigError{Field: "sink", Reason: fmt.Sprintf("unknown sink %q", c.Sink)}
	}
	return c.validateSettings()
}

// ValidateWithDSN checks both file and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Sink == SinkPostgres && c.DSN == "" {
		return &dwerr.ConfigError{Field: "dsn", Reason: "--dsn or DWLOAD_DB_URL is required"}
	}
	return nil
}
