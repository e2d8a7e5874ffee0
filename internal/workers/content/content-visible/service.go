// internal/workers/content/content-visible/service.go
package contentvisible

import (
	"context"
	stderrors "errors"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/contentgate"
	"interview-prep-workers/internal/models"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	accounts Accounts
	gate     Gate
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:   config,
		logger:   deps.Logger,
		accounts: deps.Accounts,
		gate:     deps.Gate,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	resolved, ent, err := s.resolve(ctx, input.Session)
	if err != nil {
		return nil, err
	}

	view := s.gate.Evaluate(resolved, ent)
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = s.config.DefaultPageSize
	}

	output := &Output{
		View:     view,
		Basic:    contentgate.Paginate(view.Visible.Basic, input.BasicPage, pageSize),
		Advanced: contentgate.Paginate(view.Visible.Advanced, input.AdvancedPage, pageSize),
	}
	if ent != nil {
		output.Role = ent.RoleValue()
	}

	s.logger.Debug("Content gate evaluated", map[string]interface{}{
		"accountId": input.Session.AccountID,
		"state":     string(view.State),
		"basic":     output.Basic.Total,
		"advanced":  output.Advanced.Total,
	})
	return output, nil
}

// resolve looks up the caller's record. resolved is false only when the lookup ran out
// of time; a missing session or record resolves to no entitlement.
func (s *Service) resolve(ctx context.Context, ref models.SessionRef) (bool, *models.UserEntitlement, error) {
	if ref.SessionID == "" {
		return true, nil, nil
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.config.ResolveTimeout)
	defer cancel()

	_, ent, err := s.accounts.CurrentEntitlement(resolveCtx, ref)
	switch {
	case err == nil:
		return true, ent, nil
	case errors.HasCode(err, errors.ErrCodeUnauthenticated):
		return true, nil, nil
	case stderrors.Is(resolveCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		s.logger.Warn("Entitlement lookup timed out", map[string]interface{}{
			"accountId": ref.AccountID,
			"timeout":   s.config.ResolveTimeout.String(),
		})
		return false, nil, nil
	default:
		return false, nil, err
	}
}
