// internal/workers/plan/plan-upgrade/service.go
package planupgrade

import (
	"context"
	"strings"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/zoho"
	"interview-prep-workers/internal/models"
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
	previous := models.PlanFree
	if _, current, err := s.accounts.CurrentEntitlement(ctx, input.Session); err == nil && current != nil {
		previous = current.Plan
	}

	var (
		ent *models.UserEntitlement
		err error
	)
	switch input.Plan {
	case models.PlanPro:
		ent, err = s.accounts.UpgradeToPro(ctx, input.Session)
	case models.PlanPremium:
		ent, err = s.accounts.UpgradeToPremium(ctx, input.Session)
	default:
		return nil, errors.NewInvalidPlanError(input.Plan.String())
	}
	if err != nil {
		return nil, err
	}

	output := &Output{PreviousPlan: previous, Entitlement: ent}
	if ent.Plan != previous && s.config.SyncCRM && s.crm != nil {
		s.syncPlan(ctx, ent)
	}

	s.logger.Info("Plan upgrade processed", map[string]interface{}{
		"accountId":    ent.AccountID,
		"previousPlan": previous.String(),
		"plan":         ent.Plan.String(),
	})
	return output, nil
}

func (s *Service) syncPlan(ctx context.Context, ent *models.UserEntitlement) {
	_, err := s.crm.UpsertContact(ctx, &zoho.Contact{
		Email:    ent.Email,
		LastName: strings.SplitN(ent.Email, "@", 2)[0],
		Plan:     ent.Plan.String(),
		Role:     ent.RoleValue(),
	})
	if err != nil {
		s.logger.Warn("CRM plan sync failed", map[string]interface{}{
			"accountId": ent.AccountID,
			"error":     err.Error(),
		})
	}
}
