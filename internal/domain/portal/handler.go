package portal

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patient/dashboard", h.Dashboard, auth.RequireRole(identity.RolePatient))
}

func (h *Handler) Dashboard(c echo.Context) error {
	claims := auth.ActorFromContext(c.Request().Context())

	dash, err := h.svc.Dashboard(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dash)
}
