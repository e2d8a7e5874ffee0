// internal/workers/account/account-signin-interactive/models.go
package accountsignininteractive

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/zoho"
	"interview-prep-workers/internal/entitlement"
	"interview-prep-workers/internal/models"
)

type Input struct {
	Code        string `json:"code"`
	State       string `json:"state,omitempty"`
	Error       string `json:"error,omitempty"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

type Output struct {
	SessionID    string                  `json:"sessionId"`
	IsNewAccount bool                    `json:"isNewAccount"`
	Entitlement  *models.UserEntitlement `json:"entitlement"`
	CRMContactID string                  `json:"crmContactId,omitempty"`
}

// ToVariables flattens the output into process variables.
func (o *Output) ToVariables() map[string]interface{} {
	vars := o.Entitlement.Variables()
	vars["sessionId"] = o.SessionID
	vars["isNewAccount"] = o.IsNewAccount
	vars["signedIn"] = true
	if o.CRMContactID != "" {
		vars["crmContactId"] = o.CRMContactID
	}
	return vars
}

// Accounts is the slice of the entitlement manager this worker drives.
type Accounts interface {
	SignInInteractive(ctx context.Context, grant entitlement.InteractiveGrant) (*models.UserEntitlement, *models.Session, bool, error)
}

type ContactSync interface {
	UpsertContact(ctx context.Context, contact *zoho.Contact) (string, error)
}

type ServiceDependencies struct {
	Accounts Accounts
	CRM      ContactSync
	Logger   logger.Logger
}
