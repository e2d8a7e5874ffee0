// internal/workers/account/account-signout/models.go
package accountsignout

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/models"
)

type Input struct {
	Session models.SessionRef `json:"session"`
}

type Output struct {
	AccountID string `json:"accountId"`
}

func (o *Output) ToVariables() map[string]interface{} {
	return map[string]interface{}{
		"accountId": o.AccountID,
		"signedOut": true,
		"sessionId": nil,
	}
}

type Accounts interface {
	SignOut(ctx context.Context, ref models.SessionRef) error
}

type ServiceDependencies struct {
	Accounts Accounts
	Logger   logger.Logger
}
