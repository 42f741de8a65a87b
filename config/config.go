// Package config loads bridgekv configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bridgekv/db"
)

// Config holds the full application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database and engine tuning.
type DatabaseConfig struct {
	Path             string `yaml:"path" env:"BRIDGEKV_PATH"`
	Engine           string `yaml:"engine" env:"BRIDGEKV_ENGINE"`
	CreateIfMissing  bool   `yaml:"create_if_missing" env:"BRIDGEKV_CREATE_IF_MISSING"`
	ErrorIfExists    bool   `yaml:"error_if_exists" env:"BRIDGEKV_ERROR_IF_EXISTS"`
	ParanoidChecks   bool   `yaml:"paranoid_checks" env:"BRIDGEKV_PARANOID_CHECKS"`
	CacheSize        string `yaml:"cache_size" env:"BRIDGEKV_CACHE_SIZE"`
	WriteBufferSize  string `yaml:"write_buffer_size" env:"BRIDGEKV_WRITE_BUFFER_SIZE"`
	BlockSize        string `yaml:"block_size" env:"BRIDGEKV_BLOCK_SIZE"`
	Compression      string `yaml:"compression" env:"BRIDGEKV_COMPRESSION"`
	ValueCompression string `yaml:"value_compression" env:"BRIDGEKV_VALUE_COMPRESSION"`
	QueueDepth       int    `yaml:"queue_depth" env:"BRIDGEKV_QUEUE_DEPTH"`
	SyncWrites       bool   `yaml:"sync_writes" env:"BRIDGEKV_SYNC_WRITES"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"BRIDGEKV_LOG_LEVEL"`
	Format string `yaml:"format" env:"BRIDGEKV_LOG_FORMAT"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:             "./data",
			Engine:           db.EngineLevelDB,
			CreateIfMissing:  true,
			CacheSize:        "8MB",
			WriteBufferSize:  "4MB",
			Compression:      "snappy",
			ValueCompression: "none",
			QueueDepth:       128,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides on top. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("BRIDGEKV_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("BRIDGEKV_ENGINE"); v != "" {
		c.Database.Engine = v
	}
	if v := os.Getenv("BRIDGEKV_CREATE_IF_MISSING"); v != "" {
		c.Database.CreateIfMissing = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("BRIDGEKV_ERROR_IF_EXISTS"); v != "" {
		c.Database.ErrorIfExists = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("BRIDGEKV_PARANOID_CHECKS"); v != "" {
		c.Database.ParanoidChecks = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("BRIDGEKV_CACHE_SIZE"); v != "" {
		c.Database.CacheSize = v
	}
	if v := os.Getenv("BRIDGEKV_WRITE_BUFFER_SIZE"); v != "" {
		c.Database.WriteBufferSize = v
	}
	if v := os.Getenv("BRIDGEKV_BLOCK_SIZE"); v != "" {
		c.Database.BlockSize = v
	}
	if v := os.Getenv("BRIDGEKV_COMPRESSION"); v != "" {
		c.Database.Compression = v
	}
	if v := os.Getenv("BRIDGEKV_VALUE_COMPRESSION"); v != "" {
		c.Database.ValueCompression = v
	}
	if v := os.Getenv("BRIDGEKV_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Database.QueueDepth = n
		}
	}
	if v := os.Getenv("BRIDGEKV_SYNC_WRITES"); v != "" {
		c.Database.SyncWrites = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("BRIDGEKV_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BRIDGEKV_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database path cannot be empty")
	}
	if c.Database.Engine != db.EngineLevelDB && c.Database.Engine != db.EngineMemory {
		return fmt.Errorf("config: unknown engine %q", c.Database.Engine)
	}
	if c.Database.QueueDepth < 0 {
		return fmt.Errorf("config: queue depth cannot be negative")
	}
	for _, size := range []string{c.Database.CacheSize, c.Database.WriteBufferSize, c.Database.BlockSize} {
		if size == "" {
			continue
		}
		if _, err := ParseSize(size); err != nil {
			return err
		}
	}
	return nil
}

// OpenOptions converts the database section into open options.
func (c *Config) OpenOptions() (*db.Options, error) {
	opts := db.DefaultOptions()
	opts.Engine = c.Database.Engine
	opts.ValueCompression = c.Database.ValueCompression
	opts.CreateIfMissing = c.Database.CreateIfMissing
	opts.ErrorIfExists = c.Database.ErrorIfExists
	opts.ParanoidChecks = c.Database.ParanoidChecks
	opts.Compression = c.Database.Compression

	sized := []struct {
		src string
		dst *int
	}{
		{c.Database.CacheSize, &opts.CacheSize},
		{c.Database.WriteBufferSize, &opts.WriteBufferSize},
		{c.Database.BlockSize, &opts.BlockSize},
	}
	for _, s := range sized {
		if s.src == "" {
			continue
		}
		n, err := ParseSize(s.src)
		if err != nil {
			return nil, err
		}
		*s.dst = int(n)
	}
	return opts, nil
}

// ParseSize parses a size string like "64MB" into bytes.
func ParseSize(sizeStr string) (int64, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("config: empty size string")
	}

	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(sizeStr, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(sizeStr, "KB")
	case strings.HasSuffix(sizeStr, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(sizeStr, "MB")
	case strings.HasSuffix(sizeStr, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(sizeStr, "GB")
	case strings.HasSuffix(sizeStr, "B"):
		numStr = strings.TrimSuffix(sizeStr, "B")
	default:
		numStr = sizeStr
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid size format: %s", sizeStr)
	}
	return num * multiplier, nil
}
