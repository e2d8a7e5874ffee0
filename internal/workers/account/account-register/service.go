// internal/workers/account/account-register/service.go
package accountregister

import (
	"context"
	"strings"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/zoho"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	accounts Accounts
	crm      ContactSync
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:   config,
		logger:   deps.Logger,
		accounts: deps.Accounts,
		crm:      deps.CRM,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	ent, session, err := s.accounts.RegisterWithRole(ctx, input.Email, input.Password, input.Role)
	if err != nil {
		return nil, err
	}

	output := &Output{SessionID: session.ID, Entitlement: ent}
	if s.config.SyncCRM && s.crm != nil {
		id, err := s.crm.UpsertContact(ctx, &zoho.Contact{
			Email:    ent.Email,
			LastName: strings.SplitN(ent.Email, "@", 2)[0],
			Source:   "Sign-Up Form",
			Plan:     ent.Plan.String(),
			Role:     ent.RoleValue(),
		})
		if err != nil {
			s.logger.Warn("CRM contact sync failed", map[string]interface{}{
				"accountId": ent.AccountID,
				"error":     err.Error(),
			})
		} else {
			output.CRMContactID = id
		}
	}

	s.logger.Info("Account registered", map[string]interface{}{
		"accountId": ent.AccountID,
		"role":      ent.RoleValue(),
	})
	return output, nil
}
