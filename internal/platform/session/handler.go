package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the authentication context over HTTP.
type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/login", h.Login)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/session", h.Session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if !h.mgr.Login(c.Request().Context(), req.Email, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	return c.JSON(http.StatusOK, h.mgr.CurrentUser())
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if !h.mgr.Register(c.Request().Context(), req.Email, req.Password, req.Name) {
		return echo.NewHTTPError(http.StatusBadRequest, "registration rejected")
	}
	return c.JSON(http.StatusCreated, map[string]bool{"registered": true})
}

func (h *Handler) Logout(c echo.Context) error {
	h.mgr.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Session(c echo.Context) error {
	user := h.mgr.CurrentUser()
	if user == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"authenticated": false,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          user,
	})
}

// RequireUser rejects requests while the context is anonymous. Mutating
// and reading entity state without an authenticated scope is never
// attempted.
func RequireUser(mgr *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !mgr.IsAuthenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			return next(c)
		}
	}
}
