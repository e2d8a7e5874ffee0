// Package auth is a small Keycloak admin and OpenID Connect client.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"interview-prep-workers/internal/common/errors"
)

// KeycloakClient manages realm users and password sessions.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User represents a user in Keycloak.
type User struct {
	ID            string       `json:"id,omitempty"`
	Email         string       `json:"email"`
	FirstName     string       `json:"firstName,omitempty"`
	LastName      string       `json:"lastName,omitempty"`
	Username      string       `json:"username"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	Credentials   []Credential `json:"credentials,omitempty"`
}

// Credential is a Keycloak credential representation.
type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	IDToken          string `json:"id_token,omitempty"`
	Scope            string `json:"scope"`
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active   bool   `json:"active"`
	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
	Sub      string `json:"sub,omitempty"`
}

type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (k *KeycloakClient) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)
}

func (k *KeycloakClient) adminURL(path string) string {
	return fmt.Sprintf("%s/admin/realms/%s%s", k.baseURL, k.realm, path)
}

func upstream(op string, err error) *errors.StandardError {
	return errors.NewUpstreamError("keycloak", fmt.Errorf("%s: %w", op, err))
}

func statusError(op string, status int, body []byte) *errors.StandardError {
	e := upstream(op, fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body))))
	e.Retryable = isTransientHTTPError(status)
	return e.WithMetadata("status", status)
}

// serviceToken returns a cached client-credentials token for admin calls.
func (k *KeycloakClient) serviceToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)

	status, body, err := k.do(ctx, http.MethodPost, k.tokenURL(), "", form, nil)
	if err != nil {
		return "", upstream("service token", err)
	}
	if status != http.StatusOK {
		return "", statusError("service token", status, body)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", upstream("decode service token", err)
	}

	k.accessToken = tokenResp.AccessToken
	// refresh a little early so in-flight calls never carry an expired token
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 10*time.Second)
	return k.accessToken, nil
}

// do sends form or JSON bodies and returns the status and full body.
func (k *KeycloakClient) do(ctx context.Context, method, endpoint, bearer string, form url.Values, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	contentType := ""
	switch {
	case form != nil:
		reader = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case payload != nil:
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode == http.StatusCreated {
		// admin create endpoints return the new id only in Location
		body = []byte(resp.Header.Get("Location"))
	}
	return resp.StatusCode, body, nil
}

// CreateUser registers a user with a password credential and returns the new user id.
func (k *KeycloakClient) CreateUser(ctx context.Context, user *User, password string) (string, error) {
	token, err := k.serviceToken(ctx)
	if err != nil {
		return "", err
	}

	if user.Username == "" {
		user.Username = user.Email
	}
	if password != "" {
		user.Credentials = []Credential{{Type: "password", Value: password}}
	}

	status, body, err := k.do(ctx, http.MethodPost, k.adminURL("/users"), token, nil, user)
	if err != nil {
		return "", upstream("create user", err)
	}

	switch status {
	case http.StatusCreated:
		location := string(body)
		return location[strings.LastIndex(location, "/")+1:], nil
	case http.StatusConflict:
		return "", errors.NewAccountAlreadyExistsError(user.Email)
	default:
		return "", statusError("create user", status, body)
	}
}

// GetUserByEmail returns the exact-match user for email or an ACCOUNT_NOT_FOUND error.
func (k *KeycloakClient) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	token, err := k.serviceToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := k.adminURL("/users?exact=true&email=" + url.QueryEscape(email))
	status, body, err := k.do(ctx, http.MethodGet, endpoint, token, nil, nil)
	if err != nil {
		return nil, upstream("search user", err)
	}
	if status != http.StatusOK {
		return nil, statusError("search user", status, body)
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, upstream("decode users", err)
	}
	if len(users) == 0 {
		return nil, errors.NewAccountNotFoundError(email)
	}
	return &users[0], nil
}

// PasswordGrant exchanges email and password for a session token pair.
func (k *KeycloakClient) PasswordGrant(ctx context.Context, email, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)
	form.Set("username", email)
	form.Set("password", password)
	form.Set("scope", "openid email")

	status, body, err := k.do(ctx, http.MethodPost, k.tokenURL(), "", form, nil)
	if err != nil {
		return nil, upstream("password grant", err)
	}

	switch status {
	case http.StatusOK:
		var tokenResp TokenResponse
		if err := json.Unmarshal(body, &tokenResp); err != nil {
			return nil, upstream("decode password grant", err)
		}
		return &tokenResp, nil
	case http.StatusUnauthorized, http.StatusBadRequest:
		var oe oauthError
		_ = json.Unmarshal(body, &oe)
		if oe.Error == "invalid_grant" {
			return nil, errors.NewInvalidCredentialError(email)
		}
		return nil, statusError("password grant", status, body)
	default:
		return nil, statusError("password grant", status, body)
	}
}

// Logout ends the session behind refreshToken. A token Keycloak no longer
// recognises counts as already logged out.
func (k *KeycloakClient) Logout(ctx context.Context, refreshToken string) error {
	form := url.Values{}
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)
	form.Set("refresh_token", refreshToken)

	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/logout", k.baseURL, k.realm)
	status, body, err := k.do(ctx, http.MethodPost, endpoint, "", form, nil)
	if err != nil {
		return upstream("logout", err)
	}

	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusBadRequest:
		var oe oauthError
		_ = json.Unmarshal(body, &oe)
		if oe.Error == "invalid_grant" {
			return nil
		}
	}
	return statusError("logout", status, body)
}

// ValidateToken introspects an access token; inactive tokens yield UNAUTHENTICATED.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)

	status, body, err := k.do(ctx, http.MethodPost, k.tokenURL()+"/introspect", "", form, nil)
	if err != nil {
		return nil, upstream("introspect", err)
	}
	if status != http.StatusOK {
		return nil, statusError("introspect", status, body)
	}

	var info TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, upstream("decode introspection", err)
	}
	if !info.Active {
		return nil, errors.NewUnauthenticatedError("token is not active")
	}
	return &info, nil
}

func isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
