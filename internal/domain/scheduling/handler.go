package scheduling

import (
	"errors"
	"net/http"
	"strconv"
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
	clinician := auth.RequireRole(identity.RoleClinician)

	api.POST("/reminders/schedule", h.Schedule, clinician)
	api.GET("/reminders/pending", h.ListPending, clinician)
	api.PUT("/reminders/:id/send", h.Send, clinician)
}

type scheduleRequest struct {
	PatientID       int64  `json:"patientId"`
	AppointmentDate string `json:"appointmentDate"`
	Description     string `json:"description"`
}

func (h *Handler) Schedule(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID == 0 || req.AppointmentDate == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patientId and appointmentDate are required")
	}
	appointment, err := time.Parse(time.RFC3339, req.AppointmentDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointmentDate must be RFC3339")
	}

	claims := auth.ActorFromContext(c.Request().Context())
	rem, err := h.svc.Schedule(c.Request().Context(), claims.UserID, req.PatientID, appointment, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccessDenied):
			return echo.NewHTTPError(http.StatusForbidden, ErrAccessDenied.Error())
		case errors.Is(err, db.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, db.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "reminder scheduled",
		"reminder": rem,
	})
}

func (h *Handler) ListPending(c echo.Context) error {
	list, err := h.svc.ListPending(c.Request().Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []*Reminder{}
	}
	return c.JSON(http.StatusOK, echo.Map{"reminders": list})
}

func (h *Handler) Send(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reminder id")
	}

	claims := auth.ActorFromContext(c.Request().Context())
	rem, err := h.svc.Send(c.Request().Context(), claims.UserID, id,
		auditlog.Origin{IP: c.RealIP(), UserAgent: c.Request().UserAgent()})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
		case errors.Is(err, db.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "reminder already sent")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "reminder sent",
		"reminder": rem,
	})
}
