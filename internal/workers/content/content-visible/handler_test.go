// internal/workers/content/content-visible/handler_test.go
package contentvisible

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/contentgate"
	"interview-prep-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const bankJSON = `{
  "Investment Banking": [
    {"role": "Investment Banking", "tags": "basic", "question": "Walk me through a DCF.", "answer": "a"},
    {"role": "Investment Banking", "tags": "basic", "question": "What is EBITDA?", "answer": "b"},
    {"role": "Investment Banking", "tags": "basic", "question": "What is WACC?", "answer": "c"},
    {"role": "Investment Banking", "tags": "advanced", "question": "How does an LBO create value?", "answer": "d"}
  ]
}`

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) CurrentEntitlement(ctx context.Context, ref models.SessionRef) (*models.Identity, *models.UserEntitlement, error) {
	args := m.Called(ctx, ref)
	if args.Get(1) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Identity), args.Get(1).(*models.UserEntitlement), args.Error(2)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "test-process",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newHandler(t *testing.T, accounts Accounts) *Handler {
	t.Helper()
	bank, err := contentgate.ParseBank(strings.NewReader(bankJSON))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ResolveTimeout = 50 * time.Millisecond
	cfg.DefaultPageSize = 2
	h, err := NewHandler(HandlerOptions{
		CustomConfig: cfg,
		Accounts:     accounts,
		Gate:         bank,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func entitled(role string, access int) *models.UserEntitlement {
	return &models.UserEntitlement{
		AccountID:          "acc-1",
		Email:              "ana@example.com",
		Role:               &role,
		QuestionBankAccess: access,
	}
}

func TestNewHandler_RequiresGate(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Accounts: &MockAccounts{}, Logger: logger.NewTestLogger(t)})
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResolveTimeout = cfg.Timeout + time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DefaultPageSize = cfg.MaxPageSize + 1
	assert.Error(t, cfg.Validate())

	assert.NoError(t, DefaultConfig().Validate())
}

func TestParseInput(t *testing.T) {
	h := newHandler(t, &MockAccounts{})

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
		"basicPage": 2,
		"pageSize":  5,
	}))
	require.NoError(t, err)
	assert.Equal(t, models.SessionRef{AccountID: "acc-1", SessionID: "sess-1"}, input.Session)
	assert.Equal(t, 2, input.BasicPage)
	assert.Equal(t, 0, input.AdvancedPage)
	assert.Equal(t, 5, input.PageSize)

	_, err = h.parseInput(createMockJob(2, map[string]interface{}{"pageSize": 500}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestParseInput_RejectsOutOfRangePages(t *testing.T) {
	h := newHandler(t, &MockAccounts{})

	for _, vars := range []map[string]interface{}{
		{"accountId": "acc-1", "sessionId": "sess-1", "basicPage": 6e18},
		{"accountId": "acc-1", "sessionId": "sess-1", "advancedPage": MaxPage + 1},
	} {
		_, err := h.parseInput(createMockJob(1, vars))
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "%v", vars)
	}

	assert.Equal(t, 0, intVar(map[string]interface{}{"p": 6e18}, "p"))
	assert.Equal(t, 0, intVar(map[string]interface{}{"p": -6e18}, "p"))
	assert.Equal(t, 3, intVar(map[string]interface{}{"p": float64(3)}, "p"))
}

func TestProcess_FreePlanSeesUpgradePrompt(t *testing.T) {
	accounts := &MockAccounts{}
	ref := models.SessionRef{AccountID: "acc-1", SessionID: "sess-1"}
	accounts.On("CurrentEntitlement", mock.Anything, ref).
		Return(&models.Identity{AccountID: "acc-1"}, entitled("Investment Banking", 0), nil)

	h := newHandler(t, accounts)
	out, err := h.process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
		"basicPage": 2,
	}))
	require.NoError(t, err)

	assert.Equal(t, contentgate.StateReady, out.View.State)
	assert.Equal(t, contentgate.MsgUpgradePrompt, out.View.UpgradeMessage)
	assert.False(t, out.View.Visible.ShowAdvanced)
	assert.Equal(t, "Investment Banking", out.Role)

	assert.Equal(t, 3, out.Basic.Total)
	require.Len(t, out.Basic.Items, 1)
	assert.Equal(t, 3, out.Basic.Items[0].Position)
	assert.Equal(t, "What is WACC?", out.Basic.Items[0].Item.Prompt)
	assert.Equal(t, 1, out.Advanced.Total)

	vars := out.ToVariables()
	assert.Equal(t, "ready", vars["gateState"])
	assert.Equal(t, false, vars["showAdvanced"])
	accounts.AssertExpectations(t)
}

func TestProcess_PaidPlanShowsAdvanced(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, mock.Anything).
		Return(&models.Identity{AccountID: "acc-1"}, entitled("investment banking", 1), nil)

	out, err := newHandler(t, accounts).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, contentgate.StateReady, out.View.State)
	assert.True(t, out.View.Visible.ShowAdvanced)
	assert.Empty(t, out.View.UpgradeMessage)
	assert.Len(t, out.Advanced.Items, 1)
}

func TestProcess_Unauthenticated(t *testing.T) {
	tests := []struct {
		name  string
		vars  map[string]interface{}
		setup func(m *MockAccounts)
	}{
		{
			name: "no session",
			vars: map[string]interface{}{},
		},
		{
			name: "session expired",
			vars: map[string]interface{}{"accountId": "acc-1", "sessionId": "old"},
			setup: func(m *MockAccounts) {
				m.On("CurrentEntitlement", mock.Anything, mock.Anything).
					Return(nil, nil, errors.NewUnauthenticatedError("session expired"))
			},
		},
		{
			name: "record missing",
			vars: map[string]interface{}{"accountId": "acc-1", "sessionId": "sess-1"},
			setup: func(m *MockAccounts) {
				m.On("CurrentEntitlement", mock.Anything, mock.Anything).Return(nil, nil, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &MockAccounts{}
			if tt.setup != nil {
				tt.setup(accounts)
			}
			out, err := newHandler(t, accounts).process(context.Background(), createMockJob(1, tt.vars))
			require.NoError(t, err)
			assert.Equal(t, contentgate.StateUnauthenticated, out.View.State)
			assert.Equal(t, contentgate.MsgSelectRole, out.View.Message)
			assert.Empty(t, out.Basic.Items)
			assert.Empty(t, out.Role)
		})
	}
}

func TestProcess_NoRoleContent(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, mock.Anything).
		Return(&models.Identity{AccountID: "acc-1"}, entitled("Venture Capital", 0), nil)

	out, err := newHandler(t, accounts).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, contentgate.StateNoContent, out.View.State)
	assert.Equal(t, contentgate.MsgNoQuestions, out.View.Message)
}

func TestProcess_SlowLookupReportsLoading(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, nil, errors.NewUpstreamError("entitlements", context.DeadlineExceeded))

	out, err := newHandler(t, accounts).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, contentgate.StateLoading, out.View.State)
	assert.Equal(t, "loading", out.ToVariables()["gateState"])
}

func TestProcess_StoreFailureFailsJob(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, mock.Anything).
		Return(nil, nil, errors.NewUpstreamError("entitlements", assert.AnError))

	_, err := newHandler(t, accounts).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
	}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeUpstream))
}
