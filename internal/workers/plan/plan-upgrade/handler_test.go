// internal/workers/plan/plan-upgrade/handler_test.go
package planupgrade

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/zoho"
	"interview-prep-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func (m *MockAccounts) UpgradeToPro(ctx context.Context, ref models.SessionRef) (*models.UserEntitlement, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserEntitlement), args.Error(1)
}

func (m *MockAccounts) UpgradeToPremium(ctx context.Context, ref models.SessionRef) (*models.UserEntitlement, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserEntitlement), args.Error(1)
}

type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) UpsertContact(ctx context.Context, contact *zoho.Contact) (string, error) {
	args := m.Called(ctx, contact)
	return args.String(0), args.Error(1)
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

func newHandler(t *testing.T, accounts Accounts, crm ContactSync) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 5, Timeout: 5 * time.Second, SyncCRM: true},
		Accounts:     accounts,
		CRM:          crm,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

var ref = models.SessionRef{AccountID: "kc-1", SessionID: "s-1"}

func premium() *models.UserEntitlement {
	return &models.UserEntitlement{
		AccountID: "kc-1", Email: "ada@example.com", Plan: models.PlanPremium,
		InterviewQuota: models.Unlimited, QuestionBankAccess: 1, ProgressTracking: 1,
		CaseStudy: models.CaseStudy{Plan: 2, PerWeek: models.Unlimited},
	}
}

func TestHandler_ParseInput(t *testing.T) {
	h := newHandler(t, new(MockAccounts), nil)

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{"accountId": "kc-1", "sessionId": "s-1", "plan": "premium"}))
	require.NoError(t, err)
	assert.Equal(t, ref, input.Session)
	assert.Equal(t, models.PlanPremium, input.Plan)

	for _, plan := range []string{"free", "enterprise", ""} {
		_, err := h.parseInput(createMockJob(2, map[string]interface{}{"accountId": "kc-1", "sessionId": "s-1", "plan": plan}))
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), plan)
	}
}

func TestHandler_ProcessUpgradesAndSyncsCRM(t *testing.T) {
	accounts := new(MockAccounts)
	crm := new(MockCRM)
	accounts.On("CurrentEntitlement", mock.Anything, ref).
		Return(&models.Identity{AccountID: "kc-1"}, &models.UserEntitlement{AccountID: "kc-1", Plan: models.PlanPro}, nil).Once()
	accounts.On("UpgradeToPremium", mock.Anything, ref).Return(premium(), nil).Once()
	crm.On("UpsertContact", mock.Anything, mock.MatchedBy(func(c *zoho.Contact) bool {
		return c.Plan == "premium"
	})).Return("zoho-1", nil).Once()

	h := newHandler(t, accounts, crm)
	out, err := h.process(context.Background(), createMockJob(3, map[string]interface{}{"accountId": "kc-1", "sessionId": "s-1", "plan": "premium"}))
	require.NoError(t, err)

	vars := out.ToVariables()
	assert.Equal(t, "pro", vars["previousPlan"])
	assert.Equal(t, "premium", vars["plan"])
	assert.Equal(t, true, vars["planChanged"])
	assert.True(t, out.Entitlement.TierConsistent())
	accounts.AssertExpectations(t)
	crm.AssertExpectations(t)
}

func TestHandler_ProcessAlreadyAtPlan(t *testing.T) {
	accounts := new(MockAccounts)
	crm := new(MockCRM)
	accounts.On("CurrentEntitlement", mock.Anything, ref).Return(&models.Identity{AccountID: "kc-1"}, premium(), nil).Once()
	accounts.On("UpgradeToPro", mock.Anything, ref).Return(premium(), nil).Once()

	h := newHandler(t, accounts, crm)
	out, err := h.process(context.Background(), createMockJob(4, map[string]interface{}{"accountId": "kc-1", "sessionId": "s-1", "plan": "pro"}))
	require.NoError(t, err)

	assert.Equal(t, false, out.ToVariables()["planChanged"])
	assert.Equal(t, models.PlanPremium, out.Entitlement.Plan)
	crm.AssertNotCalled(t, "UpsertContact", mock.Anything, mock.Anything)
}

func TestHandler_ProcessNotSignedIn(t *testing.T) {
	accounts := new(MockAccounts)
	accounts.On("CurrentEntitlement", mock.Anything, ref).Return(nil, nil, errors.NewUnauthenticatedError("no session")).Once()
	accounts.On("UpgradeToPro", mock.Anything, ref).Return(nil, errors.NewUnauthenticatedError("no session")).Once()

	h := newHandler(t, accounts, nil)
	_, err := h.process(context.Background(), createMockJob(5, map[string]interface{}{"accountId": "kc-1", "sessionId": "s-1", "plan": "pro"}))

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.MsgNotLoggedIn, stdErr.Message)
}

func TestService_CRMFailureIsLogged(t *testing.T) {
	accounts := new(MockAccounts)
	crm := new(MockCRM)
	accounts.On("CurrentEntitlement", mock.Anything, ref).Return(nil, nil, nil).Once()
	accounts.On("UpgradeToPremium", mock.Anything, ref).Return(premium(), nil).Once()
	crm.On("UpsertContact", mock.Anything, mock.Anything).Return("", stderrors.New("zoho down")).Once()

	svc := NewService(ServiceDependencies{Accounts: accounts, CRM: crm, Logger: logger.NewTestLogger(t)}, DefaultConfig())
	out, err := svc.Execute(context.Background(), &Input{Session: ref, Plan: models.PlanPremium})

	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, out.PreviousPlan)
}
