// internal/workers/account/account-register/models.go
package accountregister

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/zoho"
	"interview-prep-workers/internal/models"
)

type Input struct {
	Email    string `json:"email"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

type Output struct {
	SessionID    string                  `json:"sessionId"`
	Entitlement  *models.UserEntitlement `json:"entitlement"`
	CRMContactID string                  `json:"crmContactId,omitempty"`
}

func (o *Output) ToVariables() map[string]interface{} {
	vars := o.Entitlement.Variables()
	vars["sessionId"] = o.SessionID
	vars["registered"] = true
	if o.CRMContactID != "" {
		vars["crmContactId"] = o.CRMContactID
	}
	return vars
}

type Accounts interface {
	RegisterWithRole(ctx context.Context, email, password, role string) (*models.UserEntitlement, *models.Session, error)
}

type ContactSync interface {
	UpsertContact(ctx context.Context, contact *zoho.Contact) (string, error)
}

type ServiceDependencies struct {
	Accounts Accounts
	CRM      ContactSync
	Logger   logger.Logger
}
