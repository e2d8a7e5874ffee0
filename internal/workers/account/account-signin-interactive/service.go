// internal/workers/account/account-signin-interactive/service.go
package accountsignininteractive

import (
	"context"
	"strings"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/zoho"
	"interview-prep-workers/internal/entitlement"
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
	ent, session, isNew, err := s.accounts.SignInInteractive(ctx, entitlement.InteractiveGrant{
		Code:        input.Code,
		State:       input.State,
		Error:       input.Error,
		RedirectURI: input.RedirectURI,
	})
	if err != nil {
		return nil, err
	}

	output := &Output{
		SessionID:    session.ID,
		IsNewAccount: isNew,
		Entitlement:  ent,
	}

	if isNew && s.config.SyncCRM && s.crm != nil {
		output.CRMContactID = s.syncContact(ctx, ent.Email)
	}

	s.logger.Info("Interactive sign-in completed", map[string]interface{}{
		"accountId":    ent.AccountID,
		"isNewAccount": isNew,
		"hasRole":      ent.HasRole(),
	})
	return output, nil
}

// syncContact is best effort; a CRM outage never fails the sign-in.
func (s *Service) syncContact(ctx context.Context, email string) string {
	id, err := s.crm.UpsertContact(ctx, &zoho.Contact{
		Email:    email,
		LastName: strings.SplitN(email, "@", 2)[0],
		Source:   "Google Sign-In",
		Plan:     "free",
	})
	if err != nil {
		s.logger.Warn("CRM contact sync failed", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		return ""
	}
	return id
}
