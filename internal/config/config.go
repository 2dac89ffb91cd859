package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen          string        `yaml:"listen"`
	WebDir          string        `yaml:"web_dir"`
	SamplePath      string        `yaml:"sample_path"`
	ProtocolFilter  *bool         `yaml:"protocol_filter"`
	TopPorts        int           `yaml:"top_ports"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheSweep      time.Duration `yaml:"cache_sweep"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	Gzip            *bool         `yaml:"gzip"`
	DefaultRowLimit int           `yaml:"default_row_limit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8088"
	}
	if c.WebDir == "" {
		c.WebDir = "./web"
	}
	if c.SamplePath == "" {
		c.SamplePath = "data/cybersecurity1.csv"
	}
	if c.ProtocolFilter == nil {
		c.ProtocolFilter = boolPtr(true)
	}
	if c.TopPorts == 0 {
		c.TopPorts = 10
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * time.Minute
	}
	if c.CacheSweep == 0 {
		c.CacheSweep = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Gzip == nil {
		c.Gzip = boolPtr(true)
	}
	if c.DefaultRowLimit == 0 {
		c.DefaultRowLimit = 100
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.TopPorts <= 0 {
		return errors.New("top_ports must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.DefaultRowLimit <= 0 {
		return errors.New("default_row_limit must be positive")
	}
	if c.CacheTTL < 0 || c.CacheSweep < 0 {
		return errors.New("cache durations must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// Set overrides a single key by its YAML name. It is used for command line
// flags, which take precedence over the file.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "listen":
		c.Listen = value
	case "web_dir":
		c.WebDir = value
	case "sample_path":
		c.SamplePath = value
	case "protocol_filter":
		var b bool
		if b, err = strconv.ParseBool(value); err == nil {
			c.ProtocolFilter = &b
		}
	case "top_ports":
		c.TopPorts, err = strconv.Atoi(value)
	case "max_upload_bytes":
		c.MaxUploadBytes, err = strconv.ParseInt(value, 10, 64)
	case "cache_ttl":
		c.CacheTTL, err = time.ParseDuration(value)
	case "cache_sweep":
		c.CacheSweep, err = time.ParseDuration(value)
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "gzip":
		var b bool
		if b, err = strconv.ParseBool(value); err == nil {
			c.Gzip = &b
		}
	case "default_row_limit":
		c.DefaultRowLimit, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
