// internal/workers/plan/plan-upgrade/models.go
package planupgrade

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/zoho"
	"interview-prep-workers/internal/models"
)

type Input struct {
	Session models.SessionRef
	Plan    models.Plan
}

type Output struct {
	PreviousPlan models.Plan             `json:"previousPlan"`
	Entitlement  *models.UserEntitlement `json:"entitlement"`
}

func (o *Output) ToVariables() map[string]interface{} {
	vars := o.Entitlement.Variables()
	vars["previousPlan"] = o.PreviousPlan.String()
	vars["planChanged"] = o.Entitlement.Plan != o.PreviousPlan
	return vars
}

// Accounts is the slice of the entitlement manager this worker drives.
type Accounts interface {
	CurrentEntitlement(ctx context.Context, ref models.SessionRef) (*models.Identity, *models.UserEntitlement, error)
	UpgradeToPro(ctx context.Context, ref models.SessionRef) (*models.UserEntitlement, error)
	UpgradeToPremium(ctx context.Context, ref models.SessionRef) (*models.UserEntitlement, error)
}

type ContactSync interface {
	UpsertContact(ctx context.Context, contact *zoho.Contact) (string, error)
}

type ServiceDependencies struct {
	Accounts Accounts
	CRM      ContactSync
	Logger   logger.Logger
}
