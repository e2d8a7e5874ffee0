// internal/workers/account/account-assign-role/models.go
package accountassignrole

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/models"
)

type Input struct {
	AccountID string `json:"accountId"`
	Role      string `json:"role"`
}

type Output struct {
	Entitlement *models.UserEntitlement `json:"entitlement"`
}

func (o *Output) ToVariables() map[string]interface{} {
	vars := o.Entitlement.Variables()
	vars["roleAssigned"] = true
	return vars
}

type Accounts interface {
	AssignRole(ctx context.Context, accountID, role string) (*models.UserEntitlement, error)
}

type ServiceDependencies struct {
	Accounts Accounts
	Logger   logger.Logger
}
