package websterpack

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes webster packs over HTTP: CRUD, the barcode scan
// lookup, the status summary, the assembled details view, and the
// pack-medication links.
type Handler struct {
	states *States
	svc    *Service
}

func NewHandler(states *States, svc *Service) *Handler {
	return &Handler{states: states, svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/webster-packs", h.List)
	api.POST("/webster-packs", h.Create)
	api.GET("/webster-packs/summary", h.Summary)
	api.GET("/webster-packs/scan/:barcode", h.Scan)
	api.GET("/webster-packs/:id", h.Get)
	api.GET("/webster-packs/:id/details", h.GetDetails)
	api.PATCH("/webster-packs/:id", h.Update)
	api.DELETE("/webster-packs/:id", h.Delete)
	api.GET("/webster-packs/:id/medications", h.ListMedications)
	api.POST("/webster-packs/:id/medications", h.AddMedication)
	api.DELETE("/webster-packs/:id/medications/:medicationID", h.RemoveMedication)
	api.DELETE("/webster-pack-medications/:id", h.RemoveLink)
	api.GET("/patients/:patientID/webster-packs", h.ListByPatient)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	st := h.states.For(ctx, "")
	st.Refresh(ctx)
	return c.JSON(http.StatusOK, st.Items())
}

func (h *Handler) ListByPatient(c echo.Context) error {
	ctx := c.Request().Context()
	st := h.states.For(ctx, c.Param("patientID"))
	st.Refresh(ctx)
	return c.JSON(http.StatusOK, st.Items())
}

func (h *Handler) Get(c echo.Context) error {
	p := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "webster pack not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetDetails(c echo.Context) error {
	d := h.svc.GetDetails(c.Request().Context(), c.Param("id"))
	if d == nil {
		return echo.NewHTTPError(http.StatusNotFound, "webster pack not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Scan(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.states.For(ctx, "").ScanBarcode(ctx, c.Param("barcode"))
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no pack with that barcode")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	st := h.states.For(ctx, "")
	st.Refresh(ctx)
	return c.JSON(http.StatusOK, st.Summary())
}

func (h *Handler) Create(c echo.Context) error {
	var p WebsterPack
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.Barcode == "" || p.PatientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "barcode and patient_id are required")
	}
	if p.Status != "" && p.Status != StatusPending && p.Status != StatusCompleted {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be pending or completed")
	}
	ctx := c.Request().Context()
	created := h.states.For(ctx, "").Add(ctx, p)
	if created == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to add webster pack")
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Update(c echo.Context) error {
	var fields map[string]interface{}
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}
	delete(fields, "id")
	delete(fields, "pharmacist_id")
	if status, ok := fields["status"]; ok {
		if status != StatusPending && status != StatusCompleted {
			return echo.NewHTTPError(http.StatusBadRequest, "status must be pending or completed")
		}
	}
	ctx := c.Request().Context()
	updated := h.states.For(ctx, "").Edit(ctx, c.Param("id"), fields)
	if updated == nil {
		return echo.NewHTTPError(http.StatusNotFound, "webster pack not found")
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	if !h.states.For(ctx, "").Remove(ctx, c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "webster pack not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListMedications(c echo.Context) error {
	links := h.svc.ListPackMedications(c.Request().Context(), c.Param("id"))
	return c.JSON(http.StatusOK, links)
}

type linkRequest struct {
	MedicationID string `json:"medication_id"`
}

func (h *Handler) AddMedication(c echo.Context) error {
	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.MedicationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "medication_id is required")
	}
	created := h.svc.AddMedication(c.Request().Context(), c.Param("id"), req.MedicationID)
	if created == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to link medication")
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) RemoveMedication(c echo.Context) error {
	if !h.svc.RemoveMedication(c.Request().Context(), c.Param("id"), c.Param("medicationID")) {
		return echo.NewHTTPError(http.StatusNotFound, "medication not linked to pack")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RemoveLink(c echo.Context) error {
	if !h.svc.RemoveLink(c.Request().Context(), c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "link not found")
	}
	return c.NoContent(http.StatusNoContent)
}
