// internal/common/config/secrets.go
package config

import (
	"context"
	"fmt"
)

// SecretFetcher returns the plaintext value of a named secret.
type SecretFetcher interface {
	GetSecretString(ctx context.Context, secretID string) (string, error)
}

// ResolveSecrets replaces config values listed under integrations.aws.secrets
// with their values from the secret store.
func ResolveSecrets(ctx context.Context, cfg *Config, fetcher SecretFetcher) error {
	for key, secretID := range cfg.Integrations.AWS.Secrets {
		target := secretTarget(cfg, key)
		if target == nil {
			return fmt.Errorf("unsupported secret key %q", key)
		}

		value, err := fetcher.GetSecretString(ctx, secretID)
		if err != nil {
			return fmt.Errorf("resolve secret %q: %w", key, err)
		}
		*target = value
	}
	return nil
}

func secretTarget(cfg *Config, key string) *string {
	switch key {
	case "auth.keycloak.client_secret":
		return &cfg.Auth.Keycloak.ClientSecret
	case "auth.oauth_providers.google.client_secret":
		return &cfg.Auth.OAuthProviders.Google.ClientSecret
	case "database.postgres.password":
		return &cfg.Database.Postgres.Password
	case "database.redis.password":
		return &cfg.Database.Redis.Password
	case "integrations.zoho.oauth_token":
		return &cfg.Integrations.Zoho.AuthToken
	default:
		return nil
	}
}
