// internal/workers/content/content-search/config.go
package contentsearch

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active" json:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	DefaultSize   int           `mapstructure:"default_size" json:"default_size"`
	MaxSize       int           `mapstructure:"max_size" json:"max_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       15 * time.Second,
		DefaultSize:   20,
		MaxSize:       100,
	}
}

func (c *Config) Validate() error {
	return ozzo.ValidateStruct(c,
		ozzo.Field(&c.MaxJobsActive, ozzo.Required.Error("must be positive"), ozzo.Min(1).Error("must be positive")),
		ozzo.Field(&c.Timeout, ozzo.Required.Error("must be positive"), ozzo.Min(time.Millisecond).Error("must be positive")),
		ozzo.Field(&c.DefaultSize, ozzo.Required, ozzo.Min(1), ozzo.Max(c.MaxSize)),
		ozzo.Field(&c.MaxSize, ozzo.Required, ozzo.Min(1), ozzo.Max(10000)),
	)
}
