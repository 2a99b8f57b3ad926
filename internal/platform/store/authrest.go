package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// RestAuth is the AuthClient for the hosted auth service (GoTrue dialect
// under /auth/v1). The last issued session is held in memory; session
// lifecycle beyond that (password hashing, refresh, revocation) is the
// service's business, not ours.
type RestAuth struct {
	authEmitter

	http   *resty.Client
	apiKey string
	logger zerolog.Logger

	mu      sync.Mutex
	session *Session
}

func NewRestAuth(baseURL, apiKey string, logger zerolog.Logger) *RestAuth {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RestAuth{
		http:   client,
		apiKey: apiKey,
		logger: logger,
	}
}

// tokenResponse is the auth service's session payload.
type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	User        AuthUser `json:"user"`
}

type authError struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

func (e *authError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorDescription
}

func (a *RestAuth) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*AuthUser, *Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var result struct {
		tokenResponse
		// Confirmation-pending signups return the bare user object.
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("apikey", a.apiKey).
		SetBody(body).
		SetResult(&result).
		Post("/auth/v1/signup")
	if err != nil {
		return nil, nil, fmt.Errorf("sign up: %w", err)
	}
	if resp.IsError() {
		return nil, nil, fmt.Errorf("sign up: %s", errorText(resp))
	}

	if result.AccessToken != "" {
		session := a.storeSession(result.tokenResponse)
		a.emit(EventSignedIn, session)
		return &session.User, session, nil
	}

	// Account created, email confirmation pending: user but no session.
	user := result.User
	if user.ID == "" {
		user = AuthUser{ID: result.ID, Email: result.Email}
	}
	return &user, nil, nil
}

func (a *RestAuth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var result tokenResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("apikey", a.apiKey).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sign in: %s", errorText(resp))
	}
	if result.AccessToken == "" {
		// Valid account but no active session (e.g. confirmation pending).
		return nil, nil
	}

	session := a.storeSession(result)
	a.emit(EventSignedIn, session)
	return session, nil
}

func (a *RestAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	a.emit(EventSignedOut, nil)

	if session == nil {
		return nil
	}
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("apikey", a.apiKey).
		SetHeader("Authorization", "Bearer "+session.AccessToken).
		Post("/auth/v1/logout")
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sign out: %s", errorText(resp))
	}
	return nil
}

func (a *RestAuth) GetSession(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || !time.Now().Before(a.session.ExpiresAt) {
		return nil, nil
	}
	s := *a.session
	return &s, nil
}

// AccessToken returns the current session's bearer token, or "". Wired as
// the REST store backend's token provider.
func (a *RestAuth) AccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

func (a *RestAuth) storeSession(tr tokenResponse) *Session {
	session := &Session{
		AccessToken: tr.AccessToken,
		ExpiresAt:   tokenExpiry(tr),
		User:        tr.User,
	}
	a.mu.Lock()
	a.session = session
	a.mu.Unlock()
	return session
}

// tokenExpiry prefers the expires_in hint and falls back to the token's
// own exp claim (read without signature verification; the store verifies,
// we only schedule).
func tokenExpiry(tr tokenResponse) time.Time {
	if tr.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(time.Hour)
}

func errorText(resp *resty.Response) string {
	var ae authError
	if err := json.Unmarshal(resp.Body(), &ae); err == nil && ae.text() != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode(), ae.text())
	}
	return fmt.Sprintf("status %d", resp.StatusCode())
}
