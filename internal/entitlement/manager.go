// Package entitlement creates, upgrades and reads the per-account entitlement record.
package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/metrics"
	"interview-prep-workers/internal/models"
)

type Options struct {
	Identity   IdentityProvider
	Store      DocumentStore
	Events     EventSink
	Collection string
	KnownRoles []string
	Clock      func() time.Time
	Logger     logger.Logger
}

// Manager owns the mapping from plan to feature limits and every write to the record.
type Manager struct {
	identity   IdentityProvider
	store      DocumentStore
	events     EventSink
	collection string
	knownRoles map[string]struct{}
	now        func() time.Time
	logger     logger.Logger
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("document store is required")
	}

	m := &Manager{
		identity:   opts.Identity,
		store:      opts.Store,
		events:     opts.Events,
		collection: opts.Collection,
		knownRoles: make(map[string]struct{}, len(opts.KnownRoles)),
		now:        opts.Clock,
		logger:     opts.Logger,
	}
	if m.collection == "" {
		m.collection = models.UsersCollection
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = logger.NewNoOpLogger()
	}
	m.logger = m.logger.WithFields(map[string]interface{}{"component": "entitlement"})
	for _, r := range opts.KnownRoles {
		m.knownRoles[strings.ToLower(r)] = struct{}{}
	}
	return m, nil
}

// SignInInteractive runs the provider's interactive flow and links the result to a record.
func (m *Manager) SignInInteractive(ctx context.Context, grant InteractiveGrant) (*models.UserEntitlement, *models.Session, bool, error) {
	session, err := m.identity.SignInInteractive(ctx, grant)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUserCancelled) {
			metrics.SignInCancellations.Inc()
		}
		return nil, nil, false, m.identityError("sign in interactive", err)
	}

	ent, isNew, err := m.CreateOrLinkAccount(ctx, session.Identity())
	if err != nil {
		return nil, nil, false, err
	}
	return ent, session, isNew, nil
}

// CreateOrLinkAccount creates a free record on first sign-in. An existing record with a
// role is returned untouched; one without a role only has its email refreshed.
func (m *Manager) CreateOrLinkAccount(ctx context.Context, id models.Identity) (*models.UserEntitlement, bool, error) {
	doc, err := m.store.Get(ctx, m.collection, id.AccountID)
	switch {
	case errors.HasCode(err, errors.ErrCodeDocumentNotFound):
		doc = models.NewAccountDocument(id.Email, nil, m.now())
		if err := m.store.MergeSet(ctx, m.collection, id.AccountID, doc); err != nil {
			return nil, false, m.storeError("create account", err)
		}
		metrics.AccountsCreated.WithLabelValues(string(id.Provider)).Inc()
		m.publish(ctx, AccountEvent{Type: EventAccountCreated, AccountID: id.AccountID, Email: id.Email, Plan: models.PlanFree.String(), Provider: string(id.Provider)})

		ent, err := models.DecodeEntitlement(id.AccountID, doc)
		if err != nil {
			return nil, false, m.storeError("decode new account", err)
		}
		return ent, true, nil

	case err != nil:
		return nil, false, m.storeError("load account", err)
	}

	ent, err := models.DecodeEntitlement(id.AccountID, doc)
	if err != nil {
		return nil, false, m.storeError("decode account", err)
	}
	if ent.HasRole() {
		return ent, false, nil
	}

	if err := m.store.MergeSet(ctx, m.collection, id.AccountID, map[string]interface{}{"email": id.Email}); err != nil {
		return nil, false, m.storeError("link account", err)
	}
	ent.Email = id.Email
	m.publish(ctx, AccountEvent{Type: EventAccountLinked, AccountID: id.AccountID, Email: id.Email, Provider: string(id.Provider)})
	return ent, false, nil
}

// RegisterWithRole creates a password credential and a free record carrying role.
func (m *Manager) RegisterWithRole(ctx context.Context, email, password, role string) (*models.UserEntitlement, *models.Session, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, nil, errors.NewValidationFailedError("role must not be empty")
	}
	m.checkRole(role)

	session, err := m.identity.CreateCredential(ctx, email, password)
	if err != nil {
		return nil, nil, m.identityError("create credential", err)
	}
	email = sessionEmail(session, email)

	doc := models.NewAccountDocument(email, &role, m.now())
	if err := m.store.MergeSet(ctx, m.collection, session.AccountID, doc); err != nil {
		return nil, nil, m.storeError("create account", err)
	}
	metrics.AccountsCreated.WithLabelValues(string(models.ProviderPassword)).Inc()
	m.publish(ctx, AccountEvent{Type: EventAccountCreated, AccountID: session.AccountID, Email: email, Role: role, Plan: models.PlanFree.String(), Provider: string(models.ProviderPassword)})

	ent, err := models.DecodeEntitlement(session.AccountID, doc)
	if err != nil {
		return nil, nil, m.storeError("decode new account", err)
	}
	return ent, session, nil
}

// Authenticate verifies a password credential and stamps lastLoginAt.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*models.UserEntitlement, *models.Session, error) {
	session, err := m.identity.SignInWithCredential(ctx, email, password)
	if err != nil {
		return nil, nil, m.identityError("sign in with credential", err)
	}
	email = sessionEmail(session, email)

	now := m.now()
	partial := map[string]interface{}{
		"email":       email,
		"lastLoginAt": now.UTC().Format(time.RFC3339),
	}

	// a credential without a record gets a full free record rather than a partial one
	if _, err := m.store.Get(ctx, m.collection, session.AccountID); err != nil {
		if !errors.HasCode(err, errors.ErrCodeDocumentNotFound) {
			return nil, nil, m.storeError("load account", err)
		}
		doc := models.NewAccountDocument(email, nil, now)
		for k, v := range partial {
			doc[k] = v
		}
		partial = doc
	}

	if err := m.store.MergeSet(ctx, m.collection, session.AccountID, partial); err != nil {
		return nil, nil, m.storeError("record login", err)
	}
	m.publish(ctx, AccountEvent{Type: EventLoggedIn, AccountID: session.AccountID, Email: email, Provider: string(session.Provider)})

	ent, err := m.Entitlement(ctx, session.AccountID)
	if err != nil {
		return nil, nil, err
	}
	return ent, session, nil
}

// AssignRole sets the free-form role on an existing record.
func (m *Manager) AssignRole(ctx context.Context, accountID, role string) (*models.UserEntitlement, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, errors.NewValidationFailedError("role must not be empty")
	}
	m.checkRole(role)

	ent, err := m.Entitlement(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := m.store.MergeSet(ctx, m.collection, accountID, map[string]interface{}{"role": role}); err != nil {
		return nil, m.storeError("assign role", err)
	}
	ent.Role = &role
	m.publish(ctx, AccountEvent{Type: EventRoleAssigned, AccountID: accountID, Email: ent.Email, Role: role})
	return ent, nil
}

func (m *Manager) UpgradeToPro(ctx context.Context, ref models.SessionRef) (*models.UserEntitlement, error) {
	return m.Upgrade(ctx, ref, models.PlanPro)
}

func (m *Manager) UpgradeToPremium(ctx context.Context, ref models.SessionRef) (*models.UserEntitlement, error) {
	return m.Upgrade(ctx, ref, models.PlanPremium)
}

// Upgrade applies the canonical bundle for target in a single merge. A record already
// at or above target is left as is.
func (m *Manager) Upgrade(ctx context.Context, ref models.SessionRef, target models.Plan) (*models.UserEntitlement, error) {
	if target != models.PlanPro && target != models.PlanPremium {
		return nil, errors.NewInvalidPlanError(target.String())
	}

	id, err := m.requireIdentity(ctx, ref)
	if err != nil {
		return nil, err
	}

	bundle, _ := models.TierBundle(target)
	partial := bundle

	current, err := m.Entitlement(ctx, id.AccountID)
	switch {
	case errors.HasCode(err, errors.ErrCodeDocumentNotFound):
		partial = models.NewAccountDocument(id.Email, nil, m.now())
		for k, v := range bundle {
			partial[k] = v
		}
	case err != nil:
		return nil, err
	case current.Plan >= target:
		m.logger.Info("Plan already at or above target", map[string]interface{}{
			"accountId": id.AccountID,
			"plan":      current.Plan.String(),
			"target":    target.String(),
		})
		return current, nil
	}

	if err := m.store.MergeSet(ctx, m.collection, id.AccountID, partial); err != nil {
		return nil, m.storeError("upgrade plan", err)
	}
	metrics.PlanUpgrades.WithLabelValues(target.String()).Inc()
	m.publish(ctx, AccountEvent{Type: EventPlanUpgraded, AccountID: id.AccountID, Email: id.Email, Plan: target.String()})

	return m.Entitlement(ctx, id.AccountID)
}

// SignOut ends the referenced session; signing out twice is not an error.
func (m *Manager) SignOut(ctx context.Context, ref models.SessionRef) error {
	if err := m.identity.SignOut(ctx, ref); err != nil {
		return m.identityError("sign out", err)
	}
	m.publish(ctx, AccountEvent{Type: EventSignedOut, AccountID: ref.AccountID})
	return nil
}

// Entitlement reads and decodes the record for accountID.
func (m *Manager) Entitlement(ctx context.Context, accountID string) (*models.UserEntitlement, error) {
	doc, err := m.store.Get(ctx, m.collection, accountID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDocumentNotFound) {
			return nil, err
		}
		return nil, m.storeError("load account", err)
	}

	ent, err := models.DecodeEntitlement(accountID, doc)
	if err != nil {
		return nil, m.storeError("decode account", err)
	}
	return ent, nil
}

// CurrentEntitlement resolves the session and its record. Both are nil when nobody is signed in.
func (m *Manager) CurrentEntitlement(ctx context.Context, ref models.SessionRef) (*models.Identity, *models.UserEntitlement, error) {
	id, err := m.identity.CurrentIdentity(ctx, ref)
	if err != nil {
		return nil, nil, m.identityError("current identity", err)
	}
	if id == nil {
		return nil, nil, nil
	}

	ent, err := m.Entitlement(ctx, id.AccountID)
	if errors.HasCode(err, errors.ErrCodeDocumentNotFound) {
		return id, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return id, ent, nil
}

func (m *Manager) requireIdentity(ctx context.Context, ref models.SessionRef) (*models.Identity, error) {
	id, err := m.identity.CurrentIdentity(ctx, ref)
	if err != nil {
		return nil, m.identityError("current identity", err)
	}
	if id == nil {
		return nil, errors.NewUnauthenticatedError(fmt.Sprintf("no live session for account %q", ref.AccountID))
	}
	return id, nil
}

// sessionEmail prefers the address the identity provider recorded over caller input.
func sessionEmail(session *models.Session, input string) string {
	if session.Email != "" {
		return session.Email
	}
	return input
}

func (m *Manager) checkRole(role string) {
	if len(m.knownRoles) == 0 {
		return
	}
	if _, ok := m.knownRoles[strings.ToLower(role)]; !ok {
		m.logger.Warn("Role is not in the known role list", map[string]interface{}{"role": role})
	}
}

var identityCodes = map[errors.ErrorCode]bool{
	errors.ErrCodeUserCancelled:        true,
	errors.ErrCodeInvalidCredential:    true,
	errors.ErrCodeAccountNotFound:      true,
	errors.ErrCodeAccountAlreadyExists: true,
	errors.ErrCodeUnauthenticated:      true,
	errors.ErrCodeUpstream:             true,
}

// identityError passes taxonomy errors through and wraps anything else as Upstream.
func (m *Manager) identityError(op string, err error) error {
	if stdErr, ok := errors.AsStandardError(err); ok && identityCodes[stdErr.Code] {
		return err
	}
	m.logger.Error("Identity provider failure", map[string]interface{}{"operation": op, "error": err.Error()})
	return errors.NewUpstreamError("identity", fmt.Errorf("%s: %w", op, err))
}

func (m *Manager) storeError(op string, err error) error {
	m.logger.Error("Document store failure", map[string]interface{}{"operation": op, "error": err.Error()})
	return errors.NewUpstreamError("document-store", fmt.Errorf("%s: %w", op, err))
}

func (m *Manager) publish(ctx context.Context, event AccountEvent) {
	if m.events == nil {
		return
	}
	if event.At.IsZero() {
		event.At = m.now().UTC()
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish account event", map[string]interface{}{
			"type":      event.Type,
			"accountId": event.AccountID,
			"error":     err.Error(),
		})
	}
}
