// internal/entitlement/ports.go
package entitlement

import (
	"context"
	"time"

	"interview-prep-workers/internal/models"
)

// InteractiveGrant is what the browser hands back after the provider's consent screen.
type InteractiveGrant struct {
	Code        string `json:"code"`
	State       string `json:"state,omitempty"`
	Error       string `json:"error,omitempty"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

// IdentityProvider verifies who the caller is and manages their sessions.
type IdentityProvider interface {
	SignInInteractive(ctx context.Context, grant InteractiveGrant) (*models.Session, error)
	SignInWithCredential(ctx context.Context, email, password string) (*models.Session, error)
	CreateCredential(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, ref models.SessionRef) error
	// CurrentIdentity returns nil without error when the reference has no live session.
	CurrentIdentity(ctx context.Context, ref models.SessionRef) (*models.Identity, error)
}

// DocumentStore is a keyed JSON document store with field-level merge writes.
type DocumentStore interface {
	// Get fails with DOCUMENT_NOT_FOUND when no record exists.
	Get(ctx context.Context, collection, id string) (map[string]interface{}, error)
	MergeSet(ctx context.Context, collection, id string, partial map[string]interface{}) error
}

// AccountEvent describes one account lifecycle change.
type AccountEvent struct {
	Type      string    `json:"type"`
	AccountID string    `json:"accountId"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Plan      string    `json:"plan,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventAccountCreated = "account.created"
	EventAccountLinked  = "account.linked"
	EventLoggedIn       = "account.logged_in"
	EventRoleAssigned   = "account.role_assigned"
	EventPlanUpgraded   = "account.plan_upgraded"
	EventSignedOut      = "account.signed_out"
)

// EventSink receives account events. Delivery failures never fail the operation.
type EventSink interface {
	Publish(ctx context.Context, event AccountEvent) error
}
