// internal/common/config/config.go
package config

import "fmt"

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Entitlement   EntitlementConfig       `mapstructure:"entitlement"`
	Content       ContentConfig           `mapstructure:"content"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`

	// RegistryPath is the activity registry every started worker must appear in.
	RegistryPath string `mapstructure:"registry_path"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	// Redis backs the entitlement read-through cache.
	Redis RedisConfig `mapstructure:"redis"`
	// Sessions holds signed-in sessions and identity change events.
	Sessions RedisConfig `mapstructure:"sessions"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type OAuthClientConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_uri"`
	TokenURL     string `mapstructure:"token_url"`
	UserInfoURL  string `mapstructure:"userinfo_url"`
}

type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`

	OAuthProviders struct {
		Google OAuthClientConfig `mapstructure:"google"`
	} `mapstructure:"oauth_providers"`

	SignInTimeout int `mapstructure:"sign_in_timeout"` // milliseconds
	SessionTTL    int `mapstructure:"session_ttl"`     // milliseconds
}

type EntitlementConfig struct {
	Collection string `mapstructure:"collection"`
	CacheTTL   int    `mapstructure:"cache_ttl"` // milliseconds
}

type ContentConfig struct {
	BankPath        string   `mapstructure:"bank_path"`
	Index           string   `mapstructure:"index"`
	KnownRoles      []string `mapstructure:"known_roles"`
	DefaultPageSize int      `mapstructure:"default_page_size"`
}

type IntegrationConfig struct {
	Zoho struct {
		Enabled   bool   `mapstructure:"enabled"`
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
		BaseURL   string `mapstructure:"base_url"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
		// Secrets maps a config key (e.g. "auth.keycloak.client_secret") to a Secrets Manager id.
		Secrets map[string]string `mapstructure:"secrets"`
	} `mapstructure:"aws"`

	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
