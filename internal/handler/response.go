package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"collector/internal/gate"
	"collector/internal/service"
	"collector/pkg/logger"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// Error writes a JSON error body with the given status.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Error: message})
}

func invalidRequest(c echo.Context) error {
	return Error(c, http.StatusBadRequest, "invalid request")
}

func writeServiceError(c echo.Context, err error) error {
	if err == nil {
		return Error(c, http.StatusInternalServerError, "internal error")
	}

	var validation *service.ValidationError
	var collaborator *gate.CollaboratorError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request", Problems: validation.Problems})
	case errors.Is(err, service.ErrInvalid):
		return Error(c, http.StatusBadRequest, "invalid request")
	case errors.Is(err, service.ErrInvalidToken):
		return Error(c, http.StatusBadRequest, "invalid token")
	case errors.Is(err, service.ErrTokenExpired):
		return Error(c, http.StatusBadRequest, "token expired")
	case errors.Is(err, service.ErrUnauthorized):
		return Error(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrForbidden):
		return Error(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		return Error(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrConflict):
		return Error(c, http.StatusConflict, "conflict")
	case errors.Is(err, gate.ErrSubmissionInFlight):
		return Error(c, http.StatusTooManyRequests, "submission in progress")
	case errors.Is(err, service.ErrUpstream):
		return Error(c, http.StatusBadGateway, "upstream request failed")
	case errors.As(err, &collaborator):
		logger.Error("collaborator failure", "module", "handler", "action", "request", "resource", "submission", "result", "failed",
			"path", c.Path(), "error", err)
		return Error(c, http.StatusServiceUnavailable, "service unavailable")
	default:
		logger.Error("request failed", "module", "handler", "action", "request", "resource", "http", "result", "failed",
			"path", c.Path(), "error", err)
		return Error(c, http.StatusInternalServerError, "internal error")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func idPtrToString(id *int64) *string {
	if id == nil {
		return nil
	}
	s := strconv.FormatInt(*id, 10)
	return &s
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
