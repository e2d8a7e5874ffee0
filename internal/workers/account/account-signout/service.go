// internal/workers/account/account-signout/service.go
package accountsignout

import (
	"context"

	"interview-prep-workers/internal/common/logger"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	accounts Accounts
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{config: config, logger: deps.Logger, accounts: deps.Accounts}
}

// Execute ends the session. Signing out twice is not an error.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := s.accounts.SignOut(ctx, input.Session); err != nil {
		return nil, err
	}
	s.logger.Info("Signed out", map[string]interface{}{"accountId": input.Session.AccountID})
	return &Output{AccountID: input.Session.AccountID}, nil
}
