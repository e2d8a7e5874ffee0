// internal/workers/content/content-search/handler_test.go
package contentsearch

import (
	"context"
	"encoding/json"
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

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, role, query string, size int, access int) (*contentgate.SearchResult, error) {
	args := m.Called(ctx, role, query, size, access)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contentgate.SearchResult), args.Error(1)
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

func newHandler(t *testing.T, accounts Accounts, searcher Searcher) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 5, Timeout: 5 * time.Second, DefaultSize: 10, MaxSize: 50},
		Accounts:     accounts,
		Searcher:     searcher,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func withRole(role string, access int) *models.UserEntitlement {
	return &models.UserEntitlement{AccountID: "acc-1", Role: &role, QuestionBankAccess: access}
}

var ref = models.SessionRef{AccountID: "acc-1", SessionID: "sess-1"}

func TestParseInput(t *testing.T) {
	h := newHandler(t, &MockAccounts{}, &MockSearcher{})

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
		"query":     "dcf",
		"size":      5,
	}))
	require.NoError(t, err)
	assert.Equal(t, ref, input.Session)
	assert.Equal(t, "dcf", input.Query)
	assert.Equal(t, 5, input.Size)

	_, err = h.parseInput(createMockJob(2, map[string]interface{}{"query": "dcf"}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))

	_, err = h.parseInput(createMockJob(3, map[string]interface{}{"accountId": "a", "sessionId": "s", "size": 51}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestProcess_SearchesWithinRole(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, ref).
		Return(&models.Identity{AccountID: "acc-1"}, withRole("Investment Banking", 0), nil)

	searcher := &MockSearcher{}
	searcher.On("Search", mock.Anything, "Investment Banking", "value", 10, 0).Return(&contentgate.SearchResult{
		Visible: contentgate.Visible{
			Basic:    []models.ContentItem{{Role: "Investment Banking", Tags: "basic", Prompt: "Walk me through a DCF."}},
			Advanced: []models.ContentItem{{Role: "Investment Banking", Tags: "advanced", Prompt: "How does an LBO create value?"}},
		},
		Total: 2,
	}, nil)

	out, err := newHandler(t, accounts, searcher).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
		"query":     "value",
	}))
	require.NoError(t, err)
	assert.Equal(t, contentgate.StateReady, out.State)
	assert.Equal(t, contentgate.MsgUpgradePrompt, out.UpgradeMessage)

	vars := out.ToVariables()
	assert.Equal(t, 2, vars["total"])
	assert.Equal(t, "Investment Banking", vars["role"])
	searcher.AssertExpectations(t)
}

func TestProcess_NoHits(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, ref).
		Return(&models.Identity{AccountID: "acc-1"}, withRole("Hedge Funds", 1), nil)
	searcher := &MockSearcher{}
	searcher.On("Search", mock.Anything, "Hedge Funds", "", 10, 1).Return(&contentgate.SearchResult{
		Visible: contentgate.Visible{Basic: []models.ContentItem{}, Advanced: []models.ContentItem{}, ShowAdvanced: true},
	}, nil)

	out, err := newHandler(t, accounts, searcher).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, contentgate.StateNoContent, out.State)
	assert.Equal(t, contentgate.MsgNoQuestions, out.Message)
}

func TestProcess_WithoutRoleSkipsSearch(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, ref).
		Return(&models.Identity{AccountID: "acc-1"}, &models.UserEntitlement{AccountID: "acc-1"}, nil)
	searcher := &MockSearcher{}

	out, err := newHandler(t, accounts, searcher).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, contentgate.StateUnauthenticated, out.State)
	assert.Equal(t, "unauthenticated", out.ToVariables()["gateState"])
	searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_SearchFailure(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("CurrentEntitlement", mock.Anything, ref).
		Return(&models.Identity{AccountID: "acc-1"}, withRole("Investment Banking", 1), nil)
	searcher := &MockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.NewIndexNotFoundError("interview-questions"))

	_, err := newHandler(t, accounts, searcher).process(context.Background(), createMockJob(1, map[string]interface{}{
		"accountId": "acc-1",
		"sessionId": "sess-1",
	}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexNotFound))
}
