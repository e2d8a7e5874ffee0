// internal/workers/account/account-register/config.go
package accountregister

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Enabled           bool          `mapstructure:"enabled" json:"enabled"`
	MaxJobsActive     int           `mapstructure:"max_jobs_active" json:"max_jobs_active"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout"`
	MinPasswordLength int           `mapstructure:"min_password_length" json:"min_password_length"`
	SyncCRM           bool          `mapstructure:"sync_crm" json:"sync_crm"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		MaxJobsActive:     5,
		Timeout:           30 * time.Second,
		MinPasswordLength: 6,
		SyncCRM:           true,
	}
}

func (c *Config) Validate() error {
	return ozzo.ValidateStruct(c,
		ozzo.Field(&c.MaxJobsActive, ozzo.Required.Error("must be positive"), ozzo.Min(1).Error("must be positive")),
		ozzo.Field(&c.Timeout, ozzo.Required.Error("must be positive"), ozzo.Min(time.Millisecond).Error("must be positive")),
		ozzo.Field(&c.MinPasswordLength, ozzo.Required, ozzo.Min(6), ozzo.Max(128)),
	)
}
