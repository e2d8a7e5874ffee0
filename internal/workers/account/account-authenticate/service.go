// internal/workers/account/account-authenticate/service.go
package accountauthenticate

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

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	ent, session, err := s.accounts.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account authenticated", map[string]interface{}{
		"accountId": ent.AccountID,
		"plan":      ent.Plan.String(),
	})
	return &Output{SessionID: session.ID, Entitlement: ent}, nil
}
