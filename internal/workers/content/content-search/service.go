// internal/workers/content/content-search/service.go
package contentsearch

import (
	"context"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/metrics"
	"interview-prep-workers/internal/contentgate"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	accounts Accounts
	searcher Searcher
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:   config,
		logger:   deps.Logger,
		accounts: deps.Accounts,
		searcher: deps.Searcher,
	}
}

// Execute searches within the caller's role. Callers without a role get the
// unauthenticated state rather than a failure.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	_, ent, err := s.accounts.CurrentEntitlement(ctx, input.Session)
	if err != nil && !errors.HasCode(err, errors.ErrCodeUnauthenticated) {
		return nil, err
	}
	if ent == nil || ent.RoleValue() == "" {
		return &Output{State: contentgate.StateUnauthenticated, Message: contentgate.MsgSelectRole}, nil
	}

	size := input.Size
	if size <= 0 {
		size = s.config.DefaultSize
	}

	result, err := s.searcher.Search(ctx, ent.RoleValue(), input.Query, size, ent.QuestionBankAccess)
	if err != nil {
		return nil, err
	}

	output := &Output{Role: ent.RoleValue(), Result: result, State: contentgate.StateReady}
	switch {
	case len(result.Basic) == 0 && len(result.Advanced) == 0:
		output.State = contentgate.StateNoContent
		output.Message = contentgate.MsgNoQuestions
	case !result.ShowAdvanced && len(result.Advanced) > 0:
		output.UpgradeMessage = contentgate.MsgUpgradePrompt
	}
	metrics.GateStates.WithLabelValues(string(output.State)).Inc()

	s.logger.Debug("Question search completed", map[string]interface{}{
		"accountId": input.Session.AccountID,
		"role":      output.Role,
		"hits":      result.Total,
	})
	return output, nil
}
