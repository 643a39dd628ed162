package records

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/filestore"
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

	api.POST("/clinician/records/upload", h.Upload, clinician)
	api.PUT("/clinician/records/:id", h.Update, clinician)
	api.DELETE("/clinician/records/:id", h.Delete, clinician)
	api.GET("/patient/records/:id/download", h.Download, patient)
}

func origin(c echo.Context) auditlog.Origin {
	return auditlog.Origin{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

func (h *Handler) Upload(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.FormValue("patientId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patientId")
	}
	title := c.FormValue("title")
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer src.Close()

	claims := auth.ActorFromContext(c.Request().Context())
	rec, err := h.svc.Upload(c.Request().Context(), claims.UserID, UploadInput{
		PatientID:   patientID,
		Title:       title,
		Description: c.FormValue("description"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     src,
	}, origin(c))
	if err != nil {
		return uploadError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "record uploaded",
		"record":  rec,
	})
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, filestore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds the 10MB limit")
	case errors.Is(err, filestore.ErrInvalidFileType), errors.Is(err, filestore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, ErrAccessDenied.Error())
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return err
}

type updateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handler) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	claims := auth.ActorFromContext(c.Request().Context())
	rec, err := h.svc.Update(c.Request().Context(), claims.UserID, id, req.Title, req.Description, origin(c))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "record updated",
		"record":  rec,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	claims := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), claims.UserID, id, origin(c)); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "record deleted"})
}

func (h *Handler) Download(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	claims := auth.ActorFromContext(c.Request().Context())
	rec, rc, err := h.svc.Download(c.Request().Context(), claims.UserID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, rec.FileName))
	return c.Stream(http.StatusOK, rec.FileType, rc)
}
