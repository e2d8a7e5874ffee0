// internal/entitlement/manager_test.go
package entitlement

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) SignInInteractive(ctx context.Context, grant InteractiveGrant) (*models.Session, error) {
	args := m.Called(ctx, grant)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentity) SignInWithCredential(ctx context.Context, email, password string) (*models.Session, error) {
	args := m.Called(ctx, email, password)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentity) CreateCredential(ctx context.Context, email, password string) (*models.Session, error) {
	args := m.Called(ctx, email, password)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentity) SignOut(ctx context.Context, ref models.SessionRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *MockIdentity) CurrentIdentity(ctx context.Context, ref models.SessionRef) (*models.Identity, error) {
	args := m.Called(ctx, ref)
	if id := args.Get(0); id != nil {
		return id.(*models.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

// memStore is a document store with one-level-deep merge, enough for entitlement records.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]interface{}
	writes  int
	failGet error
	failSet error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]map[string]interface{}{}}
}

func (s *memStore) Get(_ context.Context, collection, id string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	doc, ok := s.docs[collection+"/"+id]
	if !ok {
		return nil, errors.NewDocumentNotFoundError(collection, id)
	}
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) MergeSet(_ context.Context, collection, id string, partial map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	s.writes++
	key := collection + "/" + id
	doc, ok := s.docs[key]
	if !ok {
		doc = map[string]interface{}{}
		s.docs[key] = doc
	}
	for k, v := range partial {
		if sub, ok := v.(map[string]interface{}); ok {
			existing, _ := doc[k].(map[string]interface{})
			merged := map[string]interface{}{}
			for ek, ev := range existing {
				merged[ek] = ev
			}
			for sk, sv := range sub {
				merged[sk] = sv
			}
			doc[k] = merged
			continue
		}
		doc[k] = v
	}
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []AccountEvent
	err    error
}

func (r *recordingSink) Publish(_ context.Context, e AccountEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var fixedNow = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *MockIdentity, *memStore, *recordingSink) {
	t.Helper()
	idp := new(MockIdentity)
	store := newMemStore()
	sink := &recordingSink{}

	m, err := NewManager(Options{
		Identity:   idp,
		Store:      store,
		Events:     sink,
		KnownRoles: []string{"Investment Banking", "Equity Research"},
		Clock:      func() time.Time { return fixedNow },
		Logger:     logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return m, idp, store, sink
}

func googleIdentity() models.Identity {
	return models.Identity{AccountID: "uid-1", Email: "ada@example.com", Provider: models.ProviderGoogle}
}

// ==========================
// CreateOrLinkAccount
// ==========================

func TestCreateOrLinkAccount_NewAccount(t *testing.T) {
	m, _, store, sink := newTestManager(t)

	ent, isNew, err := m.CreateOrLinkAccount(context.Background(), googleIdentity())
	require.NoError(t, err)

	assert.True(t, isNew)
	assert.False(t, ent.HasRole())
	assert.Equal(t, models.PlanFree, ent.Plan)
	assert.Equal(t, float64(3), ent.InterviewQuota)
	assert.Equal(t, 0, ent.InterviewGiven)
	assert.True(t, ent.CreatedAt.Equal(fixedNow))
	assert.True(t, ent.TierConsistent())
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, []string{EventAccountCreated}, sink.types())
}

func TestCreateOrLinkAccount_ExistingRoleUnchanged(t *testing.T) {
	m, _, store, _ := newTestManager(t)
	role := "Equity Research"
	require.NoError(t, store.MergeSet(context.Background(), "users", "uid-1", models.NewAccountDocument("old@example.com", &role, fixedNow)))
	store.writes = 0

	ent, isNew, err := m.CreateOrLinkAccount(context.Background(), googleIdentity())
	require.NoError(t, err)

	assert.False(t, isNew)
	assert.Equal(t, "Equity Research", ent.RoleValue())
	assert.Equal(t, "old@example.com", ent.Email)
	assert.Equal(t, 0, store.writes, "no write for an account that already has a role")
}

func TestCreateOrLinkAccount_LinkKeepsTier(t *testing.T) {
	m, _, store, _ := newTestManager(t)
	ctx := context.Background()
	doc := models.NewAccountDocument("old@example.com", nil, fixedNow)
	pro, _ := models.TierBundle(models.PlanPro)
	for k, v := range pro {
		doc[k] = v
	}
	require.NoError(t, store.MergeSet(ctx, "users", "uid-1", doc))

	ent, isNew, err := m.CreateOrLinkAccount(ctx, googleIdentity())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "ada@example.com", ent.Email)
	assert.Equal(t, models.PlanPro, ent.Plan)

	stored, err := m.Entitlement(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, stored.Plan)
	assert.True(t, stored.TierConsistent())
}

func TestCreateOrLinkAccount_Idempotent(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	_, _, err := m.CreateOrLinkAccount(ctx, googleIdentity())
	require.NoError(t, err)
	_, err = m.AssignRole(ctx, "uid-1", "Investment Banking")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ent, isNew, err := m.CreateOrLinkAccount(ctx, googleIdentity())
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, "Investment Banking", ent.RoleValue())
	}
}

func TestCreateOrLinkAccount_StoreFailureIsUpstream(t *testing.T) {
	m, _, store, _ := newTestManager(t)
	cause := stderrors.New("connection reset")
	store.failGet = cause

	_, _, err := m.CreateOrLinkAccount(context.Background(), googleIdentity())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUpstream))
	assert.True(t, stderrors.Is(err, cause))
}

// ==========================
// SignInInteractive
// ==========================

func TestSignInInteractive(t *testing.T) {
	m, idp, _, _ := newTestManager(t)
	grant := InteractiveGrant{Code: "abc"}
	session := &models.Session{ID: "s1", AccountID: "uid-1", Email: "ada@example.com", Provider: models.ProviderGoogle}
	idp.On("SignInInteractive", mock.Anything, grant).Return(session, nil)

	ent, got, isNew, err := m.SignInInteractive(context.Background(), grant)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "ada@example.com", ent.Email)
}

func TestSignInInteractive_Cancelled(t *testing.T) {
	m, idp, store, _ := newTestManager(t)
	idp.On("SignInInteractive", mock.Anything, mock.Anything).Return(nil, errors.NewUserCancelledError("access_denied"))

	_, _, _, err := m.SignInInteractive(context.Background(), InteractiveGrant{Error: "access_denied"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUserCancelled))
	assert.Equal(t, 0, store.writes)
}

func TestSignInInteractive_UnknownProviderErrorWrapped(t *testing.T) {
	m, idp, _, _ := newTestManager(t)
	idp.On("SignInInteractive", mock.Anything, mock.Anything).Return(nil, stderrors.New("tls handshake timeout"))

	_, _, _, err := m.SignInInteractive(context.Background(), InteractiveGrant{Code: "x"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUpstream))
}

// ==========================
// RegisterWithRole / Authenticate
// ==========================

func TestRegisterWithRole(t *testing.T) {
	m, idp, _, sink := newTestManager(t)
	idp.On("CreateCredential", mock.Anything, "b@example.com", "hunter22").
		Return(&models.Session{ID: "s2", AccountID: "uid-2", Email: "b@example.com", Provider: models.ProviderPassword}, nil)

	ent, session, err := m.RegisterWithRole(context.Background(), "b@example.com", "hunter22", "Private Equity")
	require.NoError(t, err)
	assert.Equal(t, "uid-2", session.AccountID)
	assert.Equal(t, "Private Equity", ent.RoleValue())
	assert.Equal(t, models.PlanFree, ent.Plan)
	assert.Equal(t, []string{EventAccountCreated}, sink.types())
}

func TestCredentialFlowsStoreProviderEmail(t *testing.T) {
	m, idp, store, _ := newTestManager(t)
	ctx := context.Background()
	idp.On("CreateCredential", mock.Anything, " B@Example.com ", "hunter22").
		Return(&models.Session{ID: "s2", AccountID: "uid-2", Email: "b@example.com", Provider: models.ProviderPassword}, nil)
	idp.On("SignInWithCredential", mock.Anything, "B@EXAMPLE.COM", "hunter22").
		Return(&models.Session{ID: "s3", AccountID: "uid-2", Email: "b@example.com", Provider: models.ProviderPassword}, nil)

	ent, _, err := m.RegisterWithRole(ctx, " B@Example.com ", "hunter22", "Private Equity")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", ent.Email)
	assert.Equal(t, "b@example.com", store.docs["users/uid-2"]["email"])

	ent, _, err = m.Authenticate(ctx, "B@EXAMPLE.COM", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", ent.Email)
	assert.Equal(t, "b@example.com", store.docs["users/uid-2"]["email"])
}

func TestRegisterWithRole_AlreadyExists(t *testing.T) {
	m, idp, store, _ := newTestManager(t)
	idp.On("CreateCredential", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.NewAccountAlreadyExistsError("b@example.com"))

	_, _, err := m.RegisterWithRole(context.Background(), "b@example.com", "hunter22", "Hedge Funds")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAccountAlreadyExists))
	stdErr, _ := errors.AsStandardError(err)
	assert.Equal(t, "This email is already in use. Please log in instead.", stdErr.Message)
	assert.Equal(t, 0, store.writes)
}

func TestRegisterWithRole_EmptyRole(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	_, _, err := m.RegisterWithRole(context.Background(), "b@example.com", "hunter22", "  ")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestAuthenticate(t *testing.T) {
	m, idp, store, _ := newTestManager(t)
	ctx := context.Background()
	role := "Hedge Funds"
	require.NoError(t, store.MergeSet(ctx, "users", "uid-3", models.NewAccountDocument("c@example.com", &role, fixedNow.Add(-time.Hour))))
	idp.On("SignInWithCredential", mock.Anything, "c@example.com", "pw123456").
		Return(&models.Session{ID: "s3", AccountID: "uid-3", Email: "c@example.com", Provider: models.ProviderPassword}, nil)

	ent, session, err := m.Authenticate(ctx, "c@example.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "s3", session.ID)
	require.NotNil(t, ent.LastLoginAt)
	assert.True(t, ent.LastLoginAt.Equal(fixedNow))
	assert.Equal(t, "Hedge Funds", ent.RoleValue())
}

func TestAuthenticate_WithoutRecordCreatesFreeRecord(t *testing.T) {
	m, idp, _, _ := newTestManager(t)
	idp.On("SignInWithCredential", mock.Anything, "d@example.com", "pw123456").
		Return(&models.Session{ID: "s4", AccountID: "uid-4", Email: "d@example.com", Provider: models.ProviderPassword}, nil)

	ent, _, err := m.Authenticate(context.Background(), "d@example.com", "pw123456")
	require.NoError(t, err)
	assert.True(t, ent.TierConsistent())
	assert.NotNil(t, ent.LastLoginAt)
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    errors.ErrorCode
		message string
	}{
		{"not found", errors.NewAccountNotFoundError("x@example.com"), errors.ErrCodeAccountNotFound, "No account found with this email. Please sign up."},
		{"bad password", errors.NewInvalidCredentialError("x@example.com"), errors.ErrCodeInvalidCredential, "Incorrect password. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, idp, _, _ := newTestManager(t)
			idp.On("SignInWithCredential", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			_, _, err := m.Authenticate(context.Background(), "x@example.com", "whatever")
			require.Error(t, err)
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.message, stdErr.Message)
		})
	}
}

// ==========================
// AssignRole / Upgrade / SignOut
// ==========================

func TestAssignRole(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()
	_, _, err := m.CreateOrLinkAccount(ctx, googleIdentity())
	require.NoError(t, err)

	ent, err := m.AssignRole(ctx, "uid-1", "Quant Research")
	require.NoError(t, err)
	assert.Equal(t, "Quant Research", ent.RoleValue())

	_, err = m.AssignRole(ctx, "missing", "Hedge Funds")
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentNotFound))
}

func TestUpgrade_ProThenPremium(t *testing.T) {
	m, idp, _, sink := newTestManager(t)
	ctx := context.Background()
	ref := models.SessionRef{AccountID: "uid-1", SessionID: "s1"}
	id := googleIdentity()
	idp.On("CurrentIdentity", mock.Anything, ref).Return(&id, nil)

	_, _, err := m.CreateOrLinkAccount(ctx, id)
	require.NoError(t, err)

	pro, err := m.UpgradeToPro(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, pro.Plan)
	assert.Equal(t, models.CaseStudy{Plan: 1, PerWeek: 2}, pro.CaseStudy)
	assert.True(t, pro.TierConsistent())

	premium, err := m.UpgradeToPremium(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, premium.Plan)
	assert.Equal(t, float64(models.Unlimited), premium.InterviewQuota)
	assert.Equal(t, 1, premium.QuestionBankAccess)
	assert.Equal(t, 1, premium.ProgressTracking)
	assert.Equal(t, models.CaseStudy{Plan: 2, PerWeek: models.Unlimited}, premium.CaseStudy)
	assert.True(t, premium.TierConsistent())

	assert.Equal(t, []string{EventAccountCreated, EventPlanUpgraded, EventPlanUpgraded}, sink.types())
}

func TestUpgrade_NeverDowngrades(t *testing.T) {
	m, idp, store, _ := newTestManager(t)
	ctx := context.Background()
	ref := models.SessionRef{AccountID: "uid-1", SessionID: "s1"}
	id := googleIdentity()
	idp.On("CurrentIdentity", mock.Anything, ref).Return(&id, nil)

	_, _, err := m.CreateOrLinkAccount(ctx, id)
	require.NoError(t, err)
	_, err = m.UpgradeToPremium(ctx, ref)
	require.NoError(t, err)
	writes := store.writes

	ent, err := m.UpgradeToPro(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, ent.Plan)
	assert.Equal(t, writes, store.writes)
}

func TestUpgrade_WithoutRecordCreatesConsistentRecord(t *testing.T) {
	m, idp, _, _ := newTestManager(t)
	ref := models.SessionRef{AccountID: "uid-9", SessionID: "s9"}
	idp.On("CurrentIdentity", mock.Anything, ref).Return(&models.Identity{AccountID: "uid-9", Email: "z@example.com"}, nil)

	ent, err := m.UpgradeToPro(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, ent.Plan)
	assert.Equal(t, "z@example.com", ent.Email)
	assert.True(t, ent.TierConsistent())
}

func TestUpgrade_Unauthenticated(t *testing.T) {
	m, idp, store, _ := newTestManager(t)
	ref := models.SessionRef{AccountID: "uid-1", SessionID: "gone"}
	idp.On("CurrentIdentity", mock.Anything, ref).Return(nil, nil)

	_, err := m.UpgradeToPremium(context.Background(), ref)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthenticated))
	stdErr, _ := errors.AsStandardError(err)
	assert.Equal(t, "User is not logged in.", stdErr.Message)
	assert.Equal(t, 0, store.writes)
}

func TestUpgrade_RejectsFreeTarget(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	_, err := m.Upgrade(context.Background(), models.SessionRef{}, models.PlanFree)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidPlan))
}

func TestSignOut_Idempotent(t *testing.T) {
	m, idp, _, _ := newTestManager(t)
	ref := models.SessionRef{AccountID: "uid-1", SessionID: "s1"}
	idp.On("SignOut", mock.Anything, ref).Return(nil).Twice()

	assert.NoError(t, m.SignOut(context.Background(), ref))
	assert.NoError(t, m.SignOut(context.Background(), ref))
	idp.AssertExpectations(t)
}

func TestCurrentEntitlement(t *testing.T) {
	m, idp, _, _ := newTestManager(t)
	ctx := context.Background()
	signedIn := models.SessionRef{AccountID: "uid-1", SessionID: "s1"}
	signedOut := models.SessionRef{AccountID: "uid-1", SessionID: "old"}
	id := googleIdentity()
	idp.On("CurrentIdentity", mock.Anything, signedIn).Return(&id, nil)
	idp.On("CurrentIdentity", mock.Anything, signedOut).Return(nil, nil)

	gotID, ent, err := m.CurrentEntitlement(ctx, signedIn)
	require.NoError(t, err)
	assert.NotNil(t, gotID)
	assert.Nil(t, ent, "signed in but no record yet")

	_, _, err = m.CreateOrLinkAccount(ctx, id)
	require.NoError(t, err)
	_, ent, err = m.CurrentEntitlement(ctx, signedIn)
	require.NoError(t, err)
	assert.NotNil(t, ent)

	gotID, ent, err = m.CurrentEntitlement(ctx, signedOut)
	require.NoError(t, err)
	assert.Nil(t, gotID)
	assert.Nil(t, ent)
}

func TestEventSinkFailureDoesNotFailOperation(t *testing.T) {
	m, _, _, sink := newTestManager(t)
	sink.err = stderrors.New("broker down")

	_, isNew, err := m.CreateOrLinkAccount(context.Background(), googleIdentity())
	require.NoError(t, err)
	assert.True(t, isNew)
}
