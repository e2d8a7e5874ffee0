// internal/workers/content/content-visible/models.go
package contentvisible

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/contentgate"
	"interview-prep-workers/internal/models"
)

type Input struct {
	Session      models.SessionRef
	BasicPage    int
	AdvancedPage int
	PageSize     int
}

type Output struct {
	Role     string
	View     contentgate.View
	Basic    contentgate.Page
	Advanced contentgate.Page
}

// ToVariables exposes the gate state, the presentation hints and one page of each set.
func (o *Output) ToVariables() map[string]interface{} {
	return map[string]interface{}{
		"role":           o.Role,
		"gateState":      string(o.View.State),
		"gateMessage":    o.View.Message,
		"showAdvanced":   o.View.Visible.ShowAdvanced,
		"upgradeMessage": o.View.UpgradeMessage,
		"basic":          o.Basic,
		"advanced":       o.Advanced,
	}
}

type Accounts interface {
	CurrentEntitlement(ctx context.Context, ref models.SessionRef) (*models.Identity, *models.UserEntitlement, error)
}

// Gate maps an entitlement lookup to what the question page shows.
type Gate interface {
	Evaluate(resolved bool, ent *models.UserEntitlement) contentgate.View
}

type ServiceDependencies struct {
	Accounts Accounts
	Gate     Gate
	Logger   logger.Logger
}
