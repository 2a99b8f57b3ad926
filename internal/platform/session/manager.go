// Package session owns the process-wide authentication state: who the
// acting pharmacist is, whether a session exists, and the login/register/
// logout operations. It is the single writer of that state; everything
// else reads through it or subscribes to changes.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/platform/store"
)

// User is the authenticated pharmacist identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// profileRow is the optional profiles table row keyed by the auth user id.
type profileRow struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Manager is the authentication context. Create one at process start with
// NewManager, call Start once, and tear it down with Close at process end.
// The initial session check is asynchronous; WaitReady blocks until the
// state has settled to anonymous or authenticated.
type Manager struct {
	auth   store.AuthClient
	client store.Client // may be nil; used only for profile lookup
	logger zerolog.Logger

	mu   sync.RWMutex
	user *User

	ready     chan struct{}
	readyOnce sync.Once

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(u *User)

	unsubscribe func()
}

func NewManager(auth store.AuthClient, client store.Client, logger zerolog.Logger) *Manager {
	return &Manager{
		auth:   auth,
		client: client,
		logger: logger,
		ready:  make(chan struct{}),
		subs:   make(map[int]func(u *User)),
	}
}

// Start subscribes to the provider's session-change stream and resolves
// the initial session in the background. Provider-pushed updates and local
// login/logout both funnel through setUser; last write wins.
func (m *Manager) Start(ctx context.Context) {
	m.unsubscribe = m.auth.OnAuthStateChange(func(event store.AuthEvent, s *store.Session) {
		switch event {
		case store.EventSignedIn:
			if s != nil {
				m.setUser(m.resolveUser(ctx, &s.User))
			}
		case store.EventSignedOut:
			m.setUser(nil)
		}
	})

	go func() {
		defer m.signalReady()

		s, err := m.auth.GetSession(ctx)
		if err != nil {
			m.logger.Warn().Err(err).Msg("initial session check failed")
			return
		}
		if s == nil {
			return
		}
		m.setUser(m.resolveUser(ctx, &s.User))
	}()
}

// Close unsubscribes from the provider stream.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// WaitReady blocks until the initial session check has settled.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) signalReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

// Login resolves true only when the provider confirms both a valid user
// and an active session. A created-but-unconfirmed account resolves false.
func (m *Manager) Login(ctx context.Context, email, password string) bool {
	s, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.logger.Info().Err(err).Str("email", email).Msg("login rejected")
		return false
	}
	if s == nil || s.User.ID == "" {
		return false
	}
	m.setUser(m.resolveUser(ctx, &s.User))
	return true
}

// Register resolves true when the provider accepts the signup, whether or
// not a session was issued (confirmation may still be pending).
func (m *Manager) Register(ctx context.Context, email, password, name string) bool {
	user, s, err := m.auth.SignUp(ctx, email, password, map[string]interface{}{
		"full_name": name,
	})
	if err != nil {
		m.logger.Info().Err(err).Str("email", email).Msg("registration rejected")
		return false
	}
	if s != nil {
		m.setUser(m.resolveUser(ctx, &s.User))
	}
	return user != nil
}

// Logout clears the local identity immediately, then asks the provider to
// end its session. A provider failure does not resurrect the local state.
func (m *Manager) Logout(ctx context.Context) {
	m.setUser(nil)
	if err := m.auth.SignOut(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("provider sign-out failed")
	}
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// UserID returns the authenticated user id, or "" when anonymous.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return ""
	}
	return m.user.ID
}

// OnChange registers a listener invoked after every state transition with
// the new user (nil for anonymous). Returns an unsubscribe function.
func (m *Manager) OnChange(fn func(u *User)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) setUser(u *User) {
	m.mu.Lock()
	m.user = u
	m.mu.Unlock()

	m.subMu.Lock()
	fns := make([]func(u *User), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		var copied *User
		if u != nil {
			c := *u
			copied = &c
		}
		fn(copied)
	}
}

// resolveUser builds the User identity for a provider account: the
// profiles row wins when present, then signup metadata, then a name
// derived from the email local part with the default role.
func (m *Manager) resolveUser(ctx context.Context, au *store.AuthUser) *User {
	u := &User{
		ID:    au.ID,
		Email: au.Email,
		Role:  "pharmacist",
	}
	if at := strings.Index(au.Email, "@"); at > 0 {
		u.Name = au.Email[:at]
	} else {
		u.Name = au.Email
	}
	if name, _ := au.Metadata["full_name"].(string); name != "" {
		u.Name = name
	}
	if role, _ := au.Metadata["role"].(string); role != "" {
		u.Role = role
	}

	if m.client != nil {
		var profile profileRow
		err := m.client.Select(ctx, store.Table("profiles").Eq("id", au.ID).Single(), &profile)
		if err != nil {
			m.logger.Debug().Err(err).Str("user_id", au.ID).Msg("no profile row for user")
		} else {
			if profile.FullName != "" {
				u.Name = profile.FullName
			}
			if profile.Role != "" {
				u.Role = profile.Role
			}
		}
	}
	return u
}
