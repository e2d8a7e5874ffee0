// internal/workers/content/content-visible/config.go
package contentvisible

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active" json:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	// ResolveTimeout bounds the session and record lookup; past it the gate reports loading.
	ResolveTimeout  time.Duration `mapstructure:"resolve_timeout" json:"resolve_timeout"`
	DefaultPageSize int           `mapstructure:"default_page_size" json:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size" json:"max_page_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   20,
		Timeout:         10 * time.Second,
		ResolveTimeout:  5 * time.Second,
		DefaultPageSize: 10,
		MaxPageSize:     50,
	}
}

func (c *Config) Validate() error {
	return ozzo.ValidateStruct(c,
		ozzo.Field(&c.MaxJobsActive, ozzo.Required.Error("must be positive"), ozzo.Min(1).Error("must be positive")),
		ozzo.Field(&c.Timeout, ozzo.Required.Error("must be positive"), ozzo.Min(time.Millisecond).Error("must be positive")),
		ozzo.Field(&c.ResolveTimeout,
			ozzo.Required.Error("must be positive"),
			ozzo.Max(c.Timeout).Error("must not exceed timeout"),
		),
		ozzo.Field(&c.DefaultPageSize, ozzo.Required, ozzo.Min(1), ozzo.Max(c.MaxPageSize)),
		ozzo.Field(&c.MaxPageSize, ozzo.Required, ozzo.Min(1)),
	)
}
