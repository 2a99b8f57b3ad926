package allergy

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes per-patient allergy lists over HTTP.
type Handler struct {
	states *States
}

func NewHandler(states *States) *Handler {
	return &Handler{states: states}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:patientID/allergies", h.List)
	api.POST("/patients/:patientID/allergies", h.Add)
	api.DELETE("/patients/:patientID/allergies/:id", h.Remove)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	st := h.states.For(ctx, c.Param("patientID"))
	st.Refresh(ctx)
	return c.JSON(http.StatusOK, st.Items())
}

type addRequest struct {
	Allergy string `json:"allergy"`
}

func (h *Handler) Add(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Allergy == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "allergy is required")
	}
	ctx := c.Request().Context()
	created := h.states.For(ctx, c.Param("patientID")).Add(ctx, req.Allergy)
	if created == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to add allergy")
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	if !h.states.For(ctx, c.Param("patientID")).Remove(ctx, c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "allergy not found")
	}
	return c.NoContent(http.StatusNoContent)
}
