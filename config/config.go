// Package config loads service configuration from an optional YAML file with
// environment variable overrides. Environment always wins over the file so
// containerized deployments can tweak single values without shipping a new
// config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is json or text.
	LogFormat string `yaml:"log_format"`

	// Provider selects the model backend: openai or anthropic.
	Provider string `yaml:"provider"`

	// Model overrides the backend's default model id.
	Model string `yaml:"model"`

	// WorkDir is the default working directory for command execution.
	WorkDir string `yaml:"work_dir"`

	// RateInterval is the minimum spacing between model calls.
	RateInterval time.Duration `yaml:"rate_interval"`

	// HistoryPath is the SQLite file for run history. Empty keeps history
	// in memory only.
	HistoryPath string `yaml:"history_path"`

	// OTLPEndpoint enables trace export to an OTLP gRPC collector when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// rawConfig mirrors Config with RateInterval as a string so YAML can carry
// human-readable durations ("2s", "500ms") or plain seconds.
type rawConfig struct {
	Addr         string `yaml:"addr"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	WorkDir      string `yaml:"work_dir"`
	RateInterval string `yaml:"rate_interval"`
	HistoryPath  string `yaml:"history_path"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// UnmarshalYAML implements yaml.Unmarshaler. Only fields present in the
// document override the existing values, so defaults survive partial files.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw rawConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.Addr != "" {
		c.Addr = raw.Addr
	}
	if raw.LogLevel != "" {
		c.LogLevel = raw.LogLevel
	}
	if raw.LogFormat != "" {
		c.LogFormat = raw.LogFormat
	}
	if raw.Provider != "" {
		c.Provider = raw.Provider
	}
	if raw.Model != "" {
		c.Model = raw.Model
	}
	if raw.WorkDir != "" {
		c.WorkDir = raw.WorkDir
	}
	if raw.RateInterval != "" {
		c.RateInterval = parseInterval(raw.RateInterval, c.RateInterval)
	}
	if raw.HistoryPath != "" {
		c.HistoryPath = raw.HistoryPath
	}
	if raw.OTLPEndpoint != "" {
		c.OTLPEndpoint = raw.OTLPEndpoint
	}

	return nil
}

// parseInterval accepts Go duration syntax or a float number of seconds.
func parseInterval(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Addr:         ":8080",
		LogLevel:     "info",
		LogFormat:    "json",
		Provider:     "openai",
		WorkDir:      ".",
		RateInterval: time.Second,
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.RateInterval <= 0 {
		cfg.RateInterval = time.Second
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FLOWMESH_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("FLOWMESH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FLOWMESH_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("FLOWMESH_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("FLOWMESH_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("FLOWMESH_WORKDIR"); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv("FLOWMESH_RATE_INTERVAL"); v != "" {
		c.RateInterval = parseInterval(v, c.RateInterval)
	}
	if v := os.Getenv("FLOWMESH_HISTORY_PATH"); v != "" {
		c.HistoryPath = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}
}
