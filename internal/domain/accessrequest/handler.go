package accessrequest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

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
	patient := auth.RequireRole(identity.RolePatient)

	api.POST("/clinician/access-request", h.Submit, clinician)
	api.GET("/clinician/access-requests", h.ListMine, clinician)
	api.PUT("/patient/access-requests/:id/approve", h.Approve, patient)
	api.PUT("/patient/access-requests/:id/reject", h.Reject, patient)
}

func origin(c echo.Context) auditlog.Origin {
	return auditlog.Origin{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

type submitRequest struct {
	PatientID int64  `json:"patientId"`
	Reason    string `json:"reason"`
}

func (h *Handler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patientId is required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}
	claims := auth.ActorFromContext(c.Request().Context())

	ar, err := h.svc.Submit(c.Request().Context(), claims.UserID, claims.Username, req.PatientID, req.Reason, origin(c))
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, db.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "access request already exists for this patient")
		case errors.Is(err, db.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "access request submitted",
		"request": ar,
	})
}

func (h *Handler) ListMine(c echo.Context) error {
	claims := auth.ActorFromContext(c.Request().Context())

	requests, err := h.svc.ListByClinician(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	if requests == nil {
		requests = []*AccessRequest{}
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": requests})
}

func (h *Handler) Approve(c echo.Context) error {
	return h.resolve(c, StatusApproved)
}

func (h *Handler) Reject(c echo.Context) error {
	return h.resolve(c, StatusRejected)
}

func (h *Handler) resolve(c echo.Context, status string) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	claims := auth.ActorFromContext(c.Request().Context())

	var ar *AccessRequest
	if status == StatusApproved {
		ar, err = h.svc.Approve(c.Request().Context(), id, claims.UserID, claims.Username, origin(c))
	} else {
		ar, err = h.svc.Reject(c.Request().Context(), id, claims.UserID, claims.Username, origin(c))
	}
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "access request not found")
		case errors.Is(err, db.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "access request already resolved")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "access request " + ar.Status,
		"request": ar,
	})
}
