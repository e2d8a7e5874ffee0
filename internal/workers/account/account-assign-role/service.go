// internal/workers/account/account-assign-role/service.go
package accountassignrole

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
	ent, err := s.accounts.AssignRole(ctx, input.AccountID, input.Role)
	if err != nil {
		return nil, err
	}
	return &Output{Entitlement: ent}, nil
}
