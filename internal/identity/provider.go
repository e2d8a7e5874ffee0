// Package identity signs accounts in and out against Keycloak and Google and tracks sessions.
package identity

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"interview-prep-workers/internal/common/auth"
	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/entitlement"
	"interview-prep-workers/internal/models"

	"golang.org/x/oauth2"
)

// Keycloak is the part of the Keycloak client the provider depends on.
type Keycloak interface {
	CreateUser(ctx context.Context, user *auth.User, password string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	PasswordGrant(ctx context.Context, email, password string) (*auth.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

// Google is the interactive provider leg.
type Google interface {
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	Profile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error)
}

type Options struct {
	Keycloak Keycloak
	Google   Google
	Sessions *SessionStore
	// SignInTimeout bounds the whole interactive flow; exceeding it counts as a cancelled sign-in.
	SignInTimeout time.Duration
	// ValidateTokens introspects password-session access tokens on every CurrentIdentity call.
	ValidateTokens bool
	Logger         logger.Logger
}

// Provider implements entitlement.IdentityProvider.
type Provider struct {
	kc             Keycloak
	google         Google
	sessions       *SessionStore
	signInTimeout  time.Duration
	validateTokens bool
	logger         logger.Logger
}

var _ entitlement.IdentityProvider = (*Provider)(nil)

func NewProvider(opts Options) *Provider {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.SignInTimeout <= 0 {
		opts.SignInTimeout = 2 * time.Minute
	}
	return &Provider{
		kc:             opts.Keycloak,
		google:         opts.Google,
		sessions:       opts.Sessions,
		signInTimeout:  opts.SignInTimeout,
		validateTokens: opts.ValidateTokens,
		logger:         opts.Logger.WithFields(map[string]interface{}{"component": "identity"}),
	}
}

// grant errors that mean the user walked away from the consent screen
var cancelledGrantErrors = map[string]bool{
	"access_denied":        true,
	"popup_closed_by_user": true,
	"interaction_required": true,
	"user_cancelled":       true,
}

func (p *Provider) SignInInteractive(ctx context.Context, grant entitlement.InteractiveGrant) (*models.Session, error) {
	if grant.Error != "" {
		if cancelledGrantErrors[strings.ToLower(grant.Error)] {
			return nil, errors.NewUserCancelledError(grant.Error)
		}
		return nil, errors.NewUpstreamError("google", stderrors.New(grant.Error))
	}
	if strings.TrimSpace(grant.Code) == "" {
		return nil, errors.NewUserCancelledError("no authorization code returned")
	}
	if p.google == nil {
		return nil, errors.NewUpstreamError("google", stderrors.New("interactive sign-in is not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, p.signInTimeout)
	defer cancel()

	token, err := p.google.Exchange(ctx, grant.Code, grant.RedirectURI)
	if err != nil {
		return nil, p.interactiveError(ctx, err)
	}
	profile, err := p.google.Profile(ctx, token)
	if err != nil {
		return nil, p.interactiveError(ctx, err)
	}

	accountID, err := p.findOrCreateUser(ctx, profile)
	if err != nil {
		return nil, p.interactiveError(ctx, err)
	}

	p.logger.Info("Interactive sign-in completed", map[string]interface{}{
		"accountId": accountID,
		"email":     profile.Email,
	})
	return p.sessions.Create(ctx, models.Identity{
		AccountID:   accountID,
		Email:       profile.Email,
		DisplayName: profile.Name,
		Provider:    models.ProviderGoogle,
	}, token.AccessToken, "")
}

// interactiveError turns a blown sign-in deadline into a cancellation.
func (p *Provider) interactiveError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewUserCancelledError("sign-in timed out")
	}
	return err
}

func (p *Provider) findOrCreateUser(ctx context.Context, profile *GoogleProfile) (string, error) {
	user, err := p.kc.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		return user.ID, nil
	}
	if !errors.HasCode(err, errors.ErrCodeAccountNotFound) {
		return "", err
	}

	id, err := p.kc.CreateUser(ctx, &auth.User{
		Email:         profile.Email,
		FirstName:     profile.GivenName,
		LastName:      profile.FamilyName,
		Enabled:       true,
		EmailVerified: profile.EmailVerified,
	}, "")
	if errors.HasCode(err, errors.ErrCodeAccountAlreadyExists) {
		// created concurrently by another sign-in
		user, err := p.kc.GetUserByEmail(ctx, profile.Email)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	}
	return id, err
}

func (p *Provider) SignInWithCredential(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)

	user, err := p.kc.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	tokens, err := p.kc.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return p.sessions.Create(ctx, models.Identity{
		AccountID: user.ID,
		Email:     email,
		Provider:  models.ProviderPassword,
	}, tokens.AccessToken, tokens.RefreshToken)
}

func (p *Provider) CreateCredential(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)

	id, err := p.kc.CreateUser(ctx, &auth.User{Email: email, Enabled: true}, password)
	if err != nil {
		return nil, err
	}
	tokens, err := p.kc.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Password credential created", map[string]interface{}{"accountId": id})
	return p.sessions.Create(ctx, models.Identity{
		AccountID: id,
		Email:     email,
		Provider:  models.ProviderPassword,
	}, tokens.AccessToken, tokens.RefreshToken)
}

// SignOut ends the session. An unknown or already-ended session is not an error.
func (p *Provider) SignOut(ctx context.Context, ref models.SessionRef) error {
	session, err := p.sessions.Load(ctx, ref)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if session.RefreshToken != "" {
		if err := p.kc.Logout(ctx, session.RefreshToken); err != nil {
			return err
		}
	}
	return p.sessions.Delete(ctx, ref)
}

func (p *Provider) CurrentIdentity(ctx context.Context, ref models.SessionRef) (*models.Identity, error) {
	session, err := p.sessions.Load(ctx, ref)
	if err != nil || session == nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, nil
	}

	if p.validateTokens && session.Provider == models.ProviderPassword && session.AccessToken != "" {
		if _, err := p.kc.ValidateToken(ctx, session.AccessToken); err != nil {
			if errors.HasCode(err, errors.ErrCodeUnauthenticated) {
				return nil, nil
			}
			return nil, err
		}
	}

	id := session.Identity()
	return &id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
