package identity

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public auth endpoints on pub and the
// token-protected ones on api.
func (h *Handler) RegisterRoutes(pub, api *echo.Group) {
	pub.POST("/auth/register", h.Register)
	pub.POST("/auth/login", h.Login)
	pub.POST("/auth/google", h.GoogleLogin)

	api.POST("/auth/verify", h.Verify)

	clinician := auth.RequireRole(RoleClinician)
	api.GET("/clinician/search/:patientId", h.LookupPatient, clinician)
	api.GET("/search/patient", h.SearchPatients, clinician)
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, email, password and role are required")
	}

	u, token, err := h.svc.Register(c.Request().Context(), req.Username, req.Email, req.PhoneNumber, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "username or email already registered")
		case errors.Is(err, db.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registration successful",
		"user":    u.Profile(),
		"token":   token,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	u, token, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "login successful",
		"user":    u.Profile(),
		"token":   token,
	})
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

func (h *Handler) GoogleLogin(c echo.Context) error {
	var req googleLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.IDToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idToken is required")
	}

	u, token, err := h.svc.GoogleLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid google token")
		case errors.Is(err, db.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, db.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "could not provision account")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "login successful",
		"user":    u.Profile(),
		"token":   token,
	})
}

// Verify echoes the authenticated identity so clients can validate a stored
// token on startup.
func (h *Handler) Verify(c echo.Context) error {
	claims := auth.ActorFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

func (h *Handler) LookupPatient(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.Param("patientId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	claims := auth.ActorFromContext(c.Request().Context())

	summary, err := h.svc.LookupPatient(c.Request().Context(), claims.UserID, patientID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter is required")
	}

	profiles, err := h.svc.SearchPatients(c.Request().Context(), query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"patients": profiles})
}
