// internal/workers/content/content-search/models.go
package contentsearch

import (
	"context"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/contentgate"
	"interview-prep-workers/internal/models"
)

type Input struct {
	Session models.SessionRef
	Query   string
	Size    int
}

type Output struct {
	Role           string
	State          contentgate.State
	Message        string
	UpgradeMessage string
	Result         *contentgate.SearchResult
}

func (o *Output) ToVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"role":           o.Role,
		"gateState":      string(o.State),
		"gateMessage":    o.Message,
		"upgradeMessage": o.UpgradeMessage,
		"showAdvanced":   false,
		"total":          0,
		"basic":          []models.ContentItem{},
		"advanced":       []models.ContentItem{},
	}
	if o.Result != nil {
		vars["showAdvanced"] = o.Result.ShowAdvanced
		vars["total"] = o.Result.Total
		vars["basic"] = o.Result.Basic
		vars["advanced"] = o.Result.Advanced
	}
	return vars
}

type Accounts interface {
	CurrentEntitlement(ctx context.Context, ref models.SessionRef) (*models.Identity, *models.UserEntitlement, error)
}

// Searcher runs full-text queries over the indexed question bank.
type Searcher interface {
	Search(ctx context.Context, role, query string, size int, questionBankAccess int) (*contentgate.SearchResult, error)
}

type ServiceDependencies struct {
	Accounts Accounts
	Searcher Searcher
	Logger   logger.Logger
}
