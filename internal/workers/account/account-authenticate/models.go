// internal/workers/account/account-authenticate/models.go
package accountauthenticate

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/models"
)

type Input struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

type Output struct {
	SessionID   string                  `json:"sessionId"`
	Entitlement *models.UserEntitlement `json:"entitlement"`
}

func (o *Output) ToVariables() map[string]interface{} {
	vars := o.Entitlement.Variables()
	vars["sessionId"] = o.SessionID
	vars["authenticated"] = true
	vars["hasRole"] = o.Entitlement.HasRole()
	return vars
}

type Accounts interface {
	Authenticate(ctx context.Context, email, password string) (*models.UserEntitlement, *models.Session, error)
}

type ServiceDependencies struct {
	Accounts Accounts
	Logger   logger.Logger
}
