package auditlog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-logs", h.ListMine, auth.RequireRole(identity.RoleClinician))
}

// ListMine returns the caller's own audit entries. Clinicians never see
// other actors' trails.
func (h *Handler) ListMine(c echo.Context) error {
	claims := auth.ActorFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListByActor(c.Request().Context(), claims.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list audit logs"})
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
