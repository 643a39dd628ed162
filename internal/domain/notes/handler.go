package notes

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/notes/add", h.Add, auth.RequireRole(identity.RoleClinician))
	api.GET("/notes/me", h.ListMine, auth.RequireRole(identity.RolePatient))
}

type addRequest struct {
	PatientUsername string `json:"patientUsername"`
	Note            string `json:"note"`
	AppointmentDate string `json:"appointmentDate"`
	SendReminder    bool   `json:"sendReminder"`
}

// parseDate accepts either a full timestamp or a bare calendar date.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (h *Handler) Add(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.PatientUsername = strings.TrimSpace(req.PatientUsername)
	if req.PatientUsername == "" || req.Note == "" || req.AppointmentDate == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patientUsername, note and appointmentDate are required")
	}
	appointment, err := parseDate(req.AppointmentDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointmentDate must be RFC3339 or YYYY-MM-DD")
	}

	claims := auth.ActorFromContext(c.Request().Context())
	n, err := h.svc.Add(c.Request().Context(), claims.UserID, req.PatientUsername, req.Note,
		appointment, req.SendReminder,
		auditlog.Origin{IP: c.RealIP(), UserAgent: c.Request().UserAgent()})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "note added",
		"note":    n,
	})
}

func (h *Handler) ListMine(c echo.Context) error {
	claims := auth.ActorFromContext(c.Request().Context())

	list, err := h.svc.ListMine(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*Note{}
	}
	return c.JSON(http.StatusOK, echo.Map{"notes": list})
}
