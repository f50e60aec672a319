package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// GuardianConfiguration controls threshold and timing behavior
type GuardianConfiguration struct {
	MaxFailures      int  `toml:"max_failures"`       // Consecutive bad probes before intervention
	MaxRestarts      int  `toml:"max_restarts"`       // Restarts allowed per period of instability
	ProbeIntervalMS  int  `toml:"probe_interval_ms"`  // Delay between scheduling rounds
	ProbeTimeoutMS   int  `toml:"probe_timeout_ms"`   // Per-probe deadline
	RestartTimeoutMS int  `toml:"restart_timeout_ms"` // Deadline for a restart to complete
	StartActive      bool `toml:"start_active"`       // Whether restarts are enabled at boot
}

// APIConfiguration for the admin HTTP API
type APIConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// MetricsConfiguration for Prometheus metrics and health endpoints
type MetricsConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// Configuration is the main configuration structure
type Configuration struct {
	DataDir   string `toml:"data_dir"`
	NodesFile string `toml:"nodes_file"` // YAML node manifest path

	Guardian GuardianConfiguration `toml:"guardian"`
	API      APIConfiguration      `toml:"api"`
	Metrics  MetricsConfiguration  `toml:"metrics"`
	Logging  LoggingConfiguration  `toml:"logging"`
}

// Default returns the built-in defaults
func Default() *Configuration {
	return &Configuration{
		DataDir:   "./meshguard-data",
		NodesFile: "nodes.yaml",

		Guardian: GuardianConfiguration{
			MaxFailures:      3,
			MaxRestarts:      2,
			ProbeIntervalMS:  5000,
			ProbeTimeoutMS:   2000,
			RestartTimeoutMS: 30000,
			StartActive:      true,
		},

		API: APIConfiguration{
			Enabled: true,
			Address: "127.0.0.1:7370",
		},

		Metrics: MetricsConfiguration{
			Enabled: true,
			Address: "127.0.0.1:9190",
		},

		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},
	}
}

// Load reads the TOML file over the defaults. A missing file is not an
// error; the defaults are returned unchanged.
func Load(path string) (*Configuration, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the guardian cannot run with
func (c *Configuration) Validate() error {
	if c.Guardian.MaxFailures < 1 {
		return fmt.Errorf("guardian.max_failures must be at least 1, got %d", c.Guardian.MaxFailures)
	}
	if c.Guardian.MaxRestarts < 1 {
		return fmt.Errorf("guardian.max_restarts must be at least 1, got %d", c.Guardian.MaxRestarts)
	}
	if c.Guardian.ProbeIntervalMS < 1 {
		return fmt.Errorf("guardian.probe_interval_ms must be positive, got %d", c.Guardian.ProbeIntervalMS)
	}
	if c.Guardian.ProbeTimeoutMS < 1 {
		return fmt.Errorf("guardian.probe_timeout_ms must be positive, got %d", c.Guardian.ProbeTimeoutMS)
	}
	if c.Guardian.RestartTimeoutMS < 1 {
		return fmt.Errorf("guardian.restart_timeout_ms must be positive, got %d", c.Guardian.RestartTimeoutMS)
	}
	return nil
}

// ProbeInterval returns the scheduling round interval
func (c *Configuration) ProbeInterval() time.Duration {
	return time.Duration(c.Guardian.ProbeIntervalMS) * time.Millisecond
}

// ProbeTimeout returns the per-probe deadline
func (c *Configuration) ProbeTimeout() time.Duration {
	return time.Duration(c.Guardian.ProbeTimeoutMS) * time.Millisecond
}

// RestartTimeout returns the restart completion deadline
func (c *Configuration) RestartTimeout() time.Duration {
	return time.Duration(c.Guardian.RestartTimeoutMS) * time.Millisecond
}
