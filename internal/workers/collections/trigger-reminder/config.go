// internal/workers/collections/trigger-reminder/config.go
package triggerreminder

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// MaxObligations caps one job's id list.
	MaxObligations int `mapstructure:"max_obligations"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        60 * time.Second,
		MaxObligations: 500,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MaxObligations <= 0 {
		return fmt.Errorf("max_obligations must be positive")
	}
	return nil
}
