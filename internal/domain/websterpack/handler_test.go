package websterpack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandlerScan(t *testing.T) {
	reg, svc := newTestStates(t)
	ctx := context.Background()
	svc.Create(ctx, WebsterPack{Barcode: "WP12345", PatientID: "p1", PharmacistID: "u1"})
	reg.SetUser(ctx, "u1")
	h := NewHandler(reg, svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webster-packs/scan/WP12345", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("barcode")
	c.SetParamValues("WP12345")

	if err := h.Scan(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got WebsterPack
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Barcode != "WP12345" {
		t.Errorf("expected WP12345, got %s", got.Barcode)
	}
}

func TestHandlerScanUnknown(t *testing.T) {
	reg, svc := newTestStates(t)
	reg.SetUser(context.Background(), "u1")
	h := NewHandler(reg, svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webster-packs/scan/UNKNOWN", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("barcode")
	c.SetParamValues("UNKNOWN")

	err := h.Scan(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown barcode, got %v", err)
	}
}

func TestHandlerSummary(t *testing.T) {
	reg, svc := newTestStates(t)
	ctx := context.Background()
	svc.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: "p1", PharmacistID: "u1", Status: StatusPending})
	svc.Create(ctx, WebsterPack{Barcode: "WP2", PatientID: "p1", PharmacistID: "u1", Status: StatusCompleted})
	reg.SetUser(ctx, "u1")
	h := NewHandler(reg, svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webster-packs/summary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Summary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got StatusSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 2 || got.Pending != 1 || got.Completed != 1 {
		t.Errorf("unexpected summary: %+v", got)
	}
}

func TestHandlerUpdateRejectsBadStatus(t *testing.T) {
	reg, svc := newTestStates(t)
	ctx := context.Background()
	p := svc.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: "p1", PharmacistID: "u1"})
	reg.SetUser(ctx, "u1")
	h := NewHandler(reg, svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/webster-packs/"+p.ID, strings.NewReader(`{"status":"bogus"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID)

	err := h.Update(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid status, got %v", err)
	}
	if got := svc.GetByID(ctx, p.ID); got.Status != StatusPending {
		t.Errorf("expected stored status untouched, got %s", got.Status)
	}
}
