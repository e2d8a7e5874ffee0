// internal/workers/account/account-register/handler_test.go
package accountregister

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"interview-prep-workers/internal/common/config"
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

func (m *MockAccounts) RegisterWithRole(ctx context.Context, email, password, role string) (*models.UserEntitlement, *models.Session, error) {
	args := m.Called(ctx, email, password, role)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.UserEntitlement), args.Get(1).(*models.Session), args.Error(2)
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
		ElementId:          "Activity_Register",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createValidConfig() *Config {
	return &Config{Enabled: true, MaxJobsActive: 5, Timeout: 30 * time.Second, MinPasswordLength: 6, SyncCRM: true}
}

func TestHandler_NewHandler(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: createValidConfig()})
	assert.ErrorContains(t, err, "requires an account manager")

	_, err = NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 5, Timeout: time.Second, MinPasswordLength: 3},
		Accounts:     new(MockAccounts),
	})
	assert.ErrorContains(t, err, "min_password_length")

	h, err := NewHandler(HandlerOptions{CustomConfig: createValidConfig(), Accounts: new(MockAccounts)})
	require.NoError(t, err)
	assert.Equal(t, "account.register", h.GetTaskType())
}

func TestHandler_ParseInput(t *testing.T) {
	h, err := NewHandler(HandlerOptions{CustomConfig: createValidConfig(), Accounts: new(MockAccounts), Logger: logger.NewNoOpLogger()})
	require.NoError(t, err)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{
			name:      "valid",
			variables: map[string]interface{}{"email": "ada@example.com", "password": "s3cret!", "role": "Private Equity"},
		},
		{
			name:      "missing role",
			variables: map[string]interface{}{"email": "ada@example.com", "password": "s3cret!"},
			wantErr:   true,
		},
		{
			name:      "empty role",
			variables: map[string]interface{}{"email": "ada@example.com", "password": "s3cret!", "role": ""},
			wantErr:   true,
		},
		{
			name:      "short password",
			variables: map[string]interface{}{"email": "ada@example.com", "password": "abc", "role": "Hedge Funds"},
			wantErr:   true,
		},
		{
			name:      "malformed email",
			variables: map[string]interface{}{"email": "not-an-email", "password": "s3cret!", "role": "Hedge Funds"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(7, tt.variables))
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", input.Email)
			assert.Equal(t, "Private Equity", input.Role)
		})
	}
}

func TestService_Execute(t *testing.T) {
	role := "Private Equity"
	accounts := new(MockAccounts)
	crm := new(MockCRM)
	accounts.On("RegisterWithRole", mock.Anything, "ada@example.com", "s3cret!", role).Return(
		&models.UserEntitlement{AccountID: "kc-1", Email: "ada@example.com", Role: &role, InterviewQuota: 3},
		&models.Session{ID: "s-1", AccountID: "kc-1"}, nil).Once()
	crm.On("UpsertContact", mock.Anything, mock.MatchedBy(func(c *zoho.Contact) bool {
		return c.Role == role && c.Plan == "free" && c.Source == "Sign-Up Form"
	})).Return("zoho-9", nil).Once()

	svc := NewService(ServiceDependencies{Accounts: accounts, CRM: crm, Logger: logger.NewTestLogger(t)}, createValidConfig())
	out, err := svc.Execute(context.Background(), &Input{Email: "ada@example.com", Password: "s3cret!", Role: role})
	require.NoError(t, err)

	vars := out.ToVariables()
	assert.Equal(t, role, vars["role"])
	assert.Equal(t, "s-1", vars["sessionId"])
	assert.Equal(t, "zoho-9", vars["crmContactId"])
	assert.Equal(t, float64(3), vars["interviewQuota"])
	accounts.AssertExpectations(t)
	crm.AssertExpectations(t)
}

func TestService_EmailInUse(t *testing.T) {
	accounts := new(MockAccounts)
	accounts.On("RegisterWithRole", mock.Anything, "ada@example.com", "s3cret!", "Hedge Funds").
		Return(nil, nil, errors.NewAccountAlreadyExistsError("ada@example.com")).Once()

	svc := NewService(ServiceDependencies{Accounts: accounts, Logger: logger.NewTestLogger(t)}, createValidConfig())
	_, err := svc.Execute(context.Background(), &Input{Email: "ada@example.com", Password: "s3cret!", Role: "Hedge Funds"})

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.MsgEmailInUse, stdErr.Message)
	assert.Equal(t, "ACCOUNT_ALREADY_EXISTS", errors.ConvertToBPMNError(stdErr).Code)
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appConfig := &config.Config{Workers: map[string]config.WorkerConfig{
		"account-register": {Enabled: false, MaxJobsActive: 2, Timeout: 10000},
	}}
	cfg := createConfigFromAppConfig(appConfig, nil)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.SyncCRM)
}
