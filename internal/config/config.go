// Package config handles subdivtool configuration loading and management.
package config

import (
	"fmt"
	"runtime"

	"github.com/Faultbox/subdiv/internal/halfedge"
	"github.com/Faultbox/subdiv/internal/logger"
)

// Config holds all tool settings.
type Config struct {
	Subdiv  SubdivConfig  `yaml:"subdiv" toml:"subdiv"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// SubdivConfig holds mesh construction settings.
type SubdivConfig struct {
	BoundaryMode     string  `yaml:"boundary_mode" toml:"boundary_mode"`
	TessellationRate float32 `yaml:"tessellation_rate" toml:"tessellation_rate"`
	TimeSteps        int     `yaml:"time_steps" toml:"time_steps"`
	Workers          int     `yaml:"workers" toml:"workers"`         // 0 uses GOMAXPROCS
	RadixGrain       int     `yaml:"radix_grain" toml:"radix_grain"` // Elements per parallel block
}

// CacheConfig holds tessellation cache settings.
type CacheConfig struct {
	ShardCapacity int    `yaml:"shard_capacity" toml:"shard_capacity"`
	MetricsAddr   string `yaml:"metrics_addr" toml:"metrics_addr"` // Empty disables /metrics
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
	JSON    bool   `yaml:"json" toml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Subdiv: SubdivConfig{
			BoundaryMode:     halfedge.BoundaryEdgeOnly.String(),
			TessellationRate: 1,
			TimeSteps:        1,
			Workers:          0,
			RadixGrain:       4096,
		},
		Cache: CacheConfig{
			ShardCapacity: 256,
			MetricsAddr:   "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := halfedge.ParseBoundaryMode(c.Subdiv.BoundaryMode); err != nil {
		return fmt.Errorf("subdiv.boundary_mode: %w", err)
	}
	if !(c.Subdiv.TessellationRate > 0) {
		return fmt.Errorf("subdiv.tessellation_rate must be positive, got %v", c.Subdiv.TessellationRate)
	}
	if c.Subdiv.TimeSteps < 1 {
		return fmt.Errorf("subdiv.time_steps must be at least 1, got %d", c.Subdiv.TimeSteps)
	}
	if c.Subdiv.Workers < 0 {
		return fmt.Errorf("subdiv.workers must not be negative, got %d", c.Subdiv.Workers)
	}
	if c.Subdiv.RadixGrain < 0 {
		return fmt.Errorf("subdiv.radix_grain must not be negative, got %d", c.Subdiv.RadixGrain)
	}
	if c.Cache.ShardCapacity < 1 {
		return fmt.Errorf("cache.shard_capacity must be at least 1, got %d", c.Cache.ShardCapacity)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Boundary returns the parsed boundary mode. Call Validate first.
func (c *Config) Boundary() halfedge.BoundaryMode {
	m, err := halfedge.ParseBoundaryMode(c.Subdiv.BoundaryMode)
	if err != nil {
		return halfedge.BoundaryEdgeOnly
	}
	return m
}

// WorkerCount resolves Workers against GOMAXPROCS.
func (c *Config) WorkerCount() int {
	if c.Subdiv.Workers > 0 {
		return c.Subdiv.Workers
	}
	return runtime.GOMAXPROCS(0)
}
