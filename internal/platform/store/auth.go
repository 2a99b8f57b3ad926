package store

import (
	"context"
	"sync"
	"time"
)

// AuthEvent identifies a session-change notification from the auth service.
type AuthEvent string

const (
	EventSignedIn  AuthEvent = "SIGNED_IN"
	EventSignedOut AuthEvent = "SIGNED_OUT"
)

// AuthUser is the provider's view of an account.
type AuthUser struct {
	ID       string                 `json:"id"`
	Email    string                 `json:"email"`
	Metadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// Session is an active authenticated session.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        AuthUser  `json:"user"`
}

// AuthClient is the auth sub-interface of the remote store. A sign-up may
// return a user without a session (account created, confirmation pending);
// a sign-in returns a session or an error, never both nil.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*AuthUser, *Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session, or (nil, nil) when there is none.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers a session-change listener and returns an
	// unsubscribe function.
	OnAuthStateChange(fn func(event AuthEvent, s *Session)) func()
}

// authEmitter fans session-change events out to registered listeners. Both
// auth backends embed it.
type authEmitter struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(event AuthEvent, s *Session)
}

func (e *authEmitter) OnAuthStateChange(fn func(event AuthEvent, s *Session)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[int]func(event AuthEvent, s *Session))
	}
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *authEmitter) emit(event AuthEvent, s *Session) {
	e.mu.Lock()
	fns := make([]func(event AuthEvent, s *Session), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}
