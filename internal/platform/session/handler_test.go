package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// protectedServer mounts a stand-in entity route behind RequireUser the
// way the server wires the real ones.
func protectedServer(m *Manager) *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1")
	NewHandler(m).RegisterRoutes(api)
	entities := api.Group("", RequireUser(m))
	entities.GET("/patients", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []string{})
	})
	return e
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	m := newTestManager(t, &fakeAuth{})
	e := protectedServer(m)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous request, got %d", rec.Code)
	}
}

func TestRequireUserPassesAuthenticated(t *testing.T) {
	auth := &fakeAuth{signInSession: newSession("u1", "jane@pharmacy.test")}
	m := newTestManager(t, auth)
	if !m.Login(context.Background(), "jane@pharmacy.test", "pw") {
		t.Fatal("expected login to succeed")
	}
	e := protectedServer(m)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for authenticated request, got %d", rec.Code)
	}
}

func TestRequireUserReopensAfterLogout(t *testing.T) {
	auth := &fakeAuth{signInSession: newSession("u1", "jane@pharmacy.test")}
	m := newTestManager(t, auth)
	m.Login(context.Background(), "jane@pharmacy.test", "pw")
	e := protectedServer(m)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from logout, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}
