// internal/workers/collections/run-sweep/config.go
package runsweep

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DefaultConfig allows a full sweep to run for a while; it visits every tenant.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 1,
		Timeout:       10 * time.Minute,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
