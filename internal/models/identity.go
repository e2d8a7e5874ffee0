// internal/models/identity.go
package models

import "time"

// AuthProvider names where an identity was verified.
type AuthProvider string

const (
	ProviderGoogle   AuthProvider = "google"
	ProviderPassword AuthProvider = "password"
)

// Identity is a verified account holder.
type Identity struct {
	AccountID   string       `json:"accountId"`
	Email       string       `json:"email"`
	DisplayName string       `json:"displayName,omitempty"`
	Provider    AuthProvider `json:"provider"`
}

// Session is a signed-in session, passed explicitly to every operation that needs one.
type Session struct {
	ID           string       `json:"id"`
	AccountID    string       `json:"accountId"`
	Email        string       `json:"email"`
	Provider     AuthProvider `json:"provider"`
	AccessToken  string       `json:"accessToken,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Identity returns the account holder behind the session.
func (s *Session) Identity() Identity {
	return Identity{AccountID: s.AccountID, Email: s.Email, Provider: s.Provider}
}

// SessionRef is the handle callers carry between jobs.
type SessionRef struct {
	AccountID string `json:"accountId"`
	SessionID string `json:"sessionId"`
}

// IdentityEvent is published whenever an account signs in or out.
type IdentityEvent struct {
	Type      string    `json:"type"`
	AccountID string    `json:"accountId"`
	SessionID string    `json:"sessionId,omitempty"`
	Email     string    `json:"email,omitempty"`
	At        time.Time `json:"at"`
}

const (
	IdentitySignedIn  = "signed_in"
	IdentitySignedOut = "signed_out"
)
