package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// mockUserID is the fabricated account id the mock provider hands out.
// Every development session belongs to the same pharmacist.
const mockUserID = "mock-user-id"

// MockAuth is a development AuthClient: it accepts any credentials,
// fabricates a pharmacist user from the email, signs a short-lived HS256
// session token and persists the session to a local file so it survives
// restarts.
type MockAuth struct {
	authEmitter

	mu      sync.Mutex
	secret  []byte
	file    *SessionFile
	session *Session
	logger  zerolog.Logger
}

func NewMockAuth(secret string, file *SessionFile, logger zerolog.Logger) *MockAuth {
	if secret == "" {
		secret = "webstertrack-dev-secret"
	}
	return &MockAuth{
		secret: []byte(secret),
		file:   file,
		logger: logger,
	}
}

func (m *MockAuth) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*AuthUser, *Session, error) {
	// Registration always succeeds and does not sign the user in.
	user := fabricateUser(email, metadata)
	return user, nil, nil
}

func (m *MockAuth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user := fabricateUser(email, nil)
	session, err := m.issueSession(user)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	if m.file != nil {
		if err := m.file.Save(&session.User); err != nil {
			m.logger.Warn().Err(err).Msg("failed to persist mock session")
		}
	}

	m.emit(EventSignedIn, session)
	return session, nil
}

func (m *MockAuth) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()

	if m.file != nil {
		m.file.Clear()
	}
	m.emit(EventSignedOut, nil)
	return nil
}

func (m *MockAuth) GetSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.session != nil && time.Now().Before(m.session.ExpiresAt) {
		s := *m.session
		m.mu.Unlock()
		return &s, nil
	}
	m.mu.Unlock()

	if m.file == nil {
		return nil, nil
	}

	// Restore the persisted session from the previous run.
	user, err := m.file.Load()
	if err != nil || user == nil {
		return nil, err
	}
	session, err := m.issueSession(user)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return session, nil
}

func (m *MockAuth) issueSession(user *AuthUser) (*Session, error) {
	expires := time.Now().Add(24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   expires.Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{
		AccessToken: token,
		ExpiresAt:   expires,
		User:        *user,
	}, nil
}

func fabricateUser(email string, metadata map[string]interface{}) *AuthUser {
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	md := map[string]interface{}{
		"full_name": name,
		"role":      "pharmacist",
	}
	for k, v := range metadata {
		md[k] = v
	}
	return &AuthUser{
		ID:       mockUserID,
		Email:    email,
		Metadata: md,
	}
}
