package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestMockAuth(t *testing.T) (*MockAuth, *SessionFile) {
	t.Helper()
	file := NewSessionFile(filepath.Join(t.TempDir(), "session.json"))
	return NewMockAuth("test-secret", file, zerolog.Nop()), file
}

func TestMockAuthSignInAcceptsAnyCredentials(t *testing.T) {
	m, _ := newTestMockAuth(t)

	s, err := m.SignInWithPassword(context.Background(), "jane@pharmacy.test", "whatever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("expected a session")
	}
	if s.User.ID != "mock-user-id" {
		t.Errorf("expected mock-user-id, got %s", s.User.ID)
	}
	if s.AccessToken == "" {
		t.Error("expected a signed access token")
	}
	if name, _ := s.User.Metadata["full_name"].(string); name != "jane" {
		t.Errorf("expected name derived from email, got %q", name)
	}
}

func TestMockAuthSignInRequiresEmail(t *testing.T) {
	m, _ := newTestMockAuth(t)
	if _, err := m.SignInWithPassword(context.Background(), "", "pw"); err == nil {
		t.Error("expected error for empty email")
	}
}

func TestMockAuthSignUpDoesNotSignIn(t *testing.T) {
	m, _ := newTestMockAuth(t)

	user, s, err := m.SignUp(context.Background(), "new@pharmacy.test", "pw", map[string]interface{}{"full_name": "New Pharmacist"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected a user")
	}
	if s != nil {
		t.Error("expected no session from signup")
	}
	if name, _ := user.Metadata["full_name"].(string); name != "New Pharmacist" {
		t.Errorf("expected metadata name to win, got %q", name)
	}
}

func TestMockAuthSessionSurvivesRestart(t *testing.T) {
	m, file := newTestMockAuth(t)
	ctx := context.Background()

	if _, err := m.SignInWithPassword(ctx, "jane@pharmacy.test", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	// A fresh client over the same file stands in for a process restart.
	restarted := NewMockAuth("test-secret", file, zerolog.Nop())
	s, err := restarted.GetSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("expected the persisted session to be restored")
	}
	if s.User.Email != "jane@pharmacy.test" {
		t.Errorf("expected persisted user, got %s", s.User.Email)
	}
}

func TestMockAuthSignOutClearsSession(t *testing.T) {
	m, _ := newTestMockAuth(t)
	ctx := context.Background()

	m.SignInWithPassword(ctx, "jane@pharmacy.test", "pw")
	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	s, err := m.GetSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Error("expected no session after sign out")
	}
}

func TestMockAuthEmitsEvents(t *testing.T) {
	m, _ := newTestMockAuth(t)
	ctx := context.Background()

	var events []AuthEvent
	unsubscribe := m.OnAuthStateChange(func(event AuthEvent, s *Session) {
		events = append(events, event)
	})
	defer unsubscribe()

	m.SignInWithPassword(ctx, "jane@pharmacy.test", "pw")
	m.SignOut(ctx)

	if len(events) != 2 || events[0] != EventSignedIn || events[1] != EventSignedOut {
		t.Errorf("expected signed-in then signed-out, got %v", events)
	}
}

func TestSessionFileCorruptCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	file := NewSessionFile(path)
	user, err := file.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Error("expected nil user from corrupt file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected corrupt file to be removed")
	}
}
