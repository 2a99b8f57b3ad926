package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/platform/store"
)

func newTestHandler(t *testing.T) (*Handler, *State) {
	t.Helper()
	svc := NewService(store.NewMemory(), zerolog.Nop())
	st := NewState(svc)
	st.SetUser(context.Background(), "u1")
	return NewHandler(st), st
}

func TestHandlerListWithSearch(t *testing.T) {
	h, st := newTestHandler(t)
	ctx := context.Background()
	st.Add(ctx, Patient{Name: "Alice Nguyen"})
	st.Add(ctx, Patient{Name: "Bob Carter"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients?q=alice", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Alice Nguyen" {
		t.Errorf("expected only Alice, got %v", got)
	}
}

func TestHandlerCreateValidatesName(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{"email":"x@example.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Create(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %v", err)
	}
}

func TestHandlerGetMissing(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing patient, got %v", err)
	}
}

func TestHandlerDelete(t *testing.T) {
	h, st := newTestHandler(t)
	created := st.Add(context.Background(), Patient{Name: "Alice Nguyen"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/patients/"+created.ID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.ID)

	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if len(st.Items()) != 0 {
		t.Error("expected patient removed from held list")
	}
}
