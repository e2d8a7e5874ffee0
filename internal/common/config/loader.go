// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top and
// lets environment variables override any key.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if rootDir := findProjectRoot(); rootDir != "" {
		v.AddConfigPath(filepath.Join(rootDir, "configs"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory to the nearest go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
			v.Set(key, expanded)
		}
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// overrideEmptyConfig fills credentials that are conventionally provided through plain env vars.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Auth.OAuthProviders.Google.ClientID, "GOOGLE_CLIENT_ID")
	setIfEmpty(&cfg.Auth.OAuthProviders.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setIfEmpty(&cfg.Auth.OAuthProviders.Google.RedirectURL, "GOOGLE_REDIRECT_URI")
	setIfEmpty(&cfg.Auth.Keycloak.ClientSecret, "KEYCLOAK_CLIENT_SECRET")
	setIfEmpty(&cfg.Integrations.Zoho.APIKey, "ZOHO_CRM_API_KEY")
	setIfEmpty(&cfg.Integrations.Zoho.AuthToken, "ZOHO_CRM_OAUTH_TOKEN")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "interview-prep-workers"
	}
	if cfg.App.HTTPAddress == "" {
		cfg.App.HTTPAddress = ":8080"
	}
	if cfg.App.RegistryPath == "" {
		cfg.App.RegistryPath = "configs/activity-registry.json"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Sessions.Address == "" {
		cfg.Database.Sessions = cfg.Database.Redis
	}

	if cfg.Auth.SignInTimeout == 0 {
		cfg.Auth.SignInTimeout = 120000
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 24 * 60 * 60 * 1000
	}
	if cfg.Auth.OAuthProviders.Google.TokenURL == "" {
		cfg.Auth.OAuthProviders.Google.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.Auth.OAuthProviders.Google.UserInfoURL == "" {
		cfg.Auth.OAuthProviders.Google.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	}

	if cfg.Entitlement.Collection == "" {
		cfg.Entitlement.Collection = "users"
	}
	if cfg.Entitlement.CacheTTL == 0 {
		cfg.Entitlement.CacheTTL = 5 * 60 * 1000
	}

	if cfg.Content.BankPath == "" {
		cfg.Content.BankPath = "configs/questions.json"
	}
	if cfg.Content.Index == "" {
		cfg.Content.Index = "interview-questions"
	}
	if cfg.Content.DefaultPageSize == 0 {
		cfg.Content.DefaultPageSize = 10
	}

	if cfg.Integrations.Kafka.Topic == "" {
		cfg.Integrations.Kafka.Topic = "account-events"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Auth.Keycloak.URL == "" || cfg.Auth.Keycloak.Realm == "" {
		return fmt.Errorf("auth.keycloak.url and auth.keycloak.realm are required")
	}
	if cfg.Integrations.Kafka.Enabled && len(cfg.Integrations.Kafka.Brokers) == 0 {
		return fmt.Errorf("integrations.kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
