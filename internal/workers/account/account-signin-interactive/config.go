// internal/workers/account/account-signin-interactive/config.go
package accountsignininteractive

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active" json:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	SyncCRM       bool          `mapstructure:"sync_crm" json:"sync_crm"`
}

// DefaultConfig leaves room for the two minute consent window plus the account write.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       150 * time.Second,
		SyncCRM:       true,
	}
}

func (c *Config) Validate() error {
	return ozzo.ValidateStruct(c,
		ozzo.Field(&c.MaxJobsActive, ozzo.Required.Error("must be positive"), ozzo.Min(1).Error("must be positive")),
		ozzo.Field(&c.Timeout, ozzo.Required.Error("must be positive"), ozzo.Min(time.Millisecond).Error("must be positive")),
	)
}
