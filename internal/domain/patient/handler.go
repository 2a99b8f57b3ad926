package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the patient list over HTTP, reading through the shared
// State so every consumer sees the same snapshot.
type Handler struct {
	state *State
}

func NewHandler(state *State) *Handler {
	return &Handler{state: state}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.List)
	api.GET("/patients/:id", h.Get)
	api.POST("/patients", h.Create)
	api.PATCH("/patients/:id", h.Update)
	api.DELETE("/patients/:id", h.Delete)
}

// List refreshes the held list and returns it, optionally narrowed by the
// q search term.
func (h *Handler) List(c echo.Context) error {
	h.state.Refresh(c.Request().Context())
	if term := c.QueryParam("q"); term != "" {
		return c.JSON(http.StatusOK, h.state.Filter(term))
	}
	return c.JSON(http.StatusOK, h.state.Items())
}

func (h *Handler) Get(c echo.Context) error {
	p := h.state.svc.GetByID(c.Request().Context(), c.Param("id"))
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Create(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	created := h.state.Add(c.Request().Context(), p)
	if created == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to add patient")
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
	updated := h.state.Edit(c.Request().Context(), c.Param("id"), fields)
	if updated == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	if !h.state.Remove(c.Request().Context(), c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.NoContent(http.StatusNoContent)
}
