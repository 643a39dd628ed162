package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/db"
)

func renderError(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patient/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	errorHandler(zerolog.Nop())(err, c)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestErrorHandler_StorageOutageIs503(t *testing.T) {
	rec, body := renderError(t, fmt.Errorf("list requests: %w", db.ErrUnavailable))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if body["error"] != "storage backend unavailable" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestErrorHandler_HTTPErrorPassesThrough(t *testing.T) {
	rec, body := renderError(t, echo.NewHTTPError(http.StatusNotFound, "patient not found"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body["error"] != "patient not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestErrorHandler_MasksInternalErrors(t *testing.T) {
	rec, body := renderError(t, errors.New("pq: column does not exist"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body["error"] != "internal server error" {
		t.Errorf("internal detail leaked: %q", body["error"])
	}
}
