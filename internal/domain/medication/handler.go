package medication

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes per-patient medication lists over HTTP.
type Handler struct {
	states *States
	svc    *Service
}

func NewHandler(states *States, svc *Service) *Handler {
	return &Handler{states: states, svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:patientID/medications", h.List)
	api.POST("/patients/:patientID/medications", h.Create)
	api.GET("/medications/:id", h.Get)
	api.PATCH("/medications/:id", h.Update)
	api.DELETE("/medications/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	st := h.states.For(ctx, c.Param("patientID"))
	st.Refresh(ctx)
	return c.JSON(http.StatusOK, st.Items())
}

func (h *Handler) Get(c echo.Context) error {
	m := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if m == nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Create(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if m.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	ctx := c.Request().Context()
	created := h.states.For(ctx, c.Param("patientID")).Add(ctx, m)
	if created == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to add medication")
	}
	return c.JSON(http.StatusCreated, created)
}

// Update resolves the owning patient first so the edit lands in that
// patient's shared state.
func (h *Handler) Update(c echo.Context) error {
	var fields map[string]interface{}
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}
	delete(fields, "id")
	delete(fields, "patient_id")

	ctx := c.Request().Context()
	id := c.Param("id")
	existing := h.svc.GetByID(ctx, id)
	if existing == nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	updated := h.states.For(ctx, existing.PatientID).Edit(ctx, id, fields)
	if updated == nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	existing := h.svc.GetByID(ctx, id)
	if existing == nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	if !h.states.For(ctx, existing.PatientID).Remove(ctx, id) {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	return c.NoContent(http.StatusNoContent)
}
