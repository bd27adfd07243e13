package config

import (
	"fmt"
	"os"
	"runtime"
)

// Config holds configuration for the execution runtime.
type Config struct {
	// Scheduler configuration
	Workers int `yaml:"workers"` // Worker pool size; defaults to logical CPU count

	// Batch execution configuration
	ChunkCount int `yaml:"chunk_count"` // Number of chunks for shared-module batches

	// Logging
	LogInvocations bool `yaml:"log_invocations"` // Emit a record per invocation
	EnableColors   bool `yaml:"enable_colors"`   // Colored console output
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:        defaultWorkers(),
		ChunkCount:     8,
		LogInvocations: false,
		EnableColors:   true,
	}
}

// defaultWorkers sizes the pool to the logical CPU count, falling back to 4.
func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
	if c.ChunkCount == 0 {
		c.ChunkCount = defaults.ChunkCount
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() []error {
	var errs []error

	if c.Workers <= 0 {
		errs = append(errs, &ConfigError{Field: "Workers", Message: "must be positive"})
	}
	if c.ChunkCount <= 0 {
		errs = append(errs, &ConfigError{Field: "ChunkCount", Message: "must be positive"})
	}

	return errs
}

// LoadFromFile reads a YAML configuration file and applies defaults for
// any omitted fields.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	if err := DecodeStrict(f, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}
