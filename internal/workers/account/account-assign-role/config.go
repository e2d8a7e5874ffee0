// internal/workers/account/account-assign-role/config.go
package accountassignrole

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active" json:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       15 * time.Second,
	}
}

func (c *Config) Validate() error {
	return ozzo.ValidateStruct(c,
		ozzo.Field(&c.MaxJobsActive, ozzo.Required.Error("must be positive"), ozzo.Min(1).Error("must be positive")),
		ozzo.Field(&c.Timeout, ozzo.Required.Error("must be positive"), ozzo.Min(time.Millisecond).Error("must be positive")),
	)
}
