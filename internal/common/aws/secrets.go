// internal/common/aws/secrets.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient resolves secret strings by id or ARN.
type SecretsClient struct {
	api SecretsManagerAPI
}

func NewSecretsClient(ctx context.Context, region string) (*SecretsClient, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SecretsClient{api: secretsmanager.NewFromConfig(cfg)}, nil
}

func NewSecretsClientWithAPI(api SecretsManagerAPI) *SecretsClient {
	return &SecretsClient{api: api}
}

func (s *SecretsClient) GetSecretString(ctx context.Context, secretID string) (string, error) {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: awssdk.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}
	return *out.SecretString, nil
}
