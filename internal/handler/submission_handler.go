package handler

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"collector/internal/gate"
	"collector/internal/i18n"
	"collector/internal/model"
	"collector/internal/service"
	"collector/pkg/logger"
)

type SubmissionHandler struct {
	service service.SubmissionService
	bundle  *i18n.Bundle
	cookies CookieOptions
}

type submitRequest struct {
	Email     string `json:"email"`
	Message   string `json:"message"`
	Website   string `json:"website"`
	Timestamp string `json:"timestamp"`
}

type submissionResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Locale    string `json:"locale,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type submitResponse struct {
	Accepted   bool                `json:"accepted"`
	Message    string              `json:"message"`
	Submission *submissionResponse `json:"submission,omitempty"`
}

type reasonResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

type rejectionResponse struct {
	Error   string           `json:"error"`
	Reasons []reasonResponse `json:"reasons"`
}

type fieldResponse struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

type formStateResponse struct {
	Email     fieldResponse `json:"email"`
	Message   fieldResponse `json:"message"`
	CanSubmit bool          `json:"canSubmit"`
}

func NewSubmissionHandler(service service.SubmissionService, bundle *i18n.Bundle, cookies CookieOptions) *SubmissionHandler {
	return &SubmissionHandler{service: service, bundle: bundle, cookies: cookies}
}

func (h *SubmissionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/submissions", h.Submit)
	g.POST("/submissions/validate", h.Validate)
}

func (h *SubmissionHandler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	locale := requestLocale(h.bundle, c)

	var clientTS time.Time
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			clientTS = parsed
		}
	}

	result, err := h.service.Submit(c.Request().Context(), service.SubmitRequest{
		Email:           req.Email,
		Message:         req.Message,
		Website:         req.Website,
		SessionKey:      clientSessionKey(c, h.cookies),
		UserAgent:       c.Request().UserAgent(),
		IPAddress:       usableIP(c.RealIP()),
		Locale:          locale,
		Referrer:        c.Request().Referer(),
		ClientTimestamp: clientTS,
	})
	if err != nil {
		return h.writeSubmitError(c, locale, err)
	}

	if result.Honeypot {
		return c.JSON(http.StatusCreated, submitResponse{Accepted: true, Message: translate(h.bundle, locale, "successMessage", nil)})
	}

	outcome := result.Outcome
	if !outcome.Admitted {
		return h.writeRejection(c, locale, outcome)
	}

	resp := submitResponse{Accepted: true, Message: translate(h.bundle, locale, "successMessage", nil)}
	if outcome.Submission != nil {
		s := toSubmissionResponse(*outcome.Submission)
		resp.Submission = &s
	}
	return c.JSON(http.StatusCreated, resp)
}

// Validate reports the live field state of the form without submitting.
func (h *SubmissionHandler) Validate(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	locale := requestLocale(h.bundle, c)
	state := h.service.Validate(req.Email, req.Message)

	return c.JSON(http.StatusOK, formStateResponse{
		Email:     fieldResponse{State: string(state.Email), Message: h.fieldMessage(locale, state.Email, "emailRequired", "emailInvalid")},
		Message:   fieldResponse{State: string(state.Message), Message: h.fieldMessage(locale, state.Message, "messageRequired", "messageTooShort")},
		CanSubmit: state.CanSubmit,
	})
}

func (h *SubmissionHandler) fieldMessage(locale string, state gate.FieldState, emptyKey, invalidKey string) string {
	switch state {
	case gate.FieldEmpty:
		return translate(h.bundle, locale, emptyKey, nil)
	case gate.FieldInvalid:
		return translate(h.bundle, locale, invalidKey, map[string]string{"min": strconv.Itoa(gate.MinMessageLength)})
	default:
		return ""
	}
}

func (h *SubmissionHandler) writeRejection(c echo.Context, locale string, outcome gate.Outcome) error {
	status := http.StatusBadRequest
	resp := rejectionResponse{Error: translate(h.bundle, locale, "errorMessage", nil)}
	for _, reason := range outcome.Reasons {
		r := reasonResponse{Code: string(reason.Code)}
		switch reason.Code {
		case gate.ReasonRateLimited:
			seconds := int(math.Ceil(reason.RetryAfter.Seconds()))
			status = http.StatusTooManyRequests
			r.RetryAfter = seconds
			r.Message = translate(h.bundle, locale, "rateLimitExceeded", map[string]string{"seconds": strconv.Itoa(seconds)})
			c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
		case gate.ReasonEmailInvalid:
			r.Message = translate(h.bundle, locale, "emailInvalid", nil)
		case gate.ReasonMessageTooShort:
			r.Message = translate(h.bundle, locale, "messageTooShort", map[string]string{"min": strconv.Itoa(gate.MinMessageLength)})
		}
		resp.Reasons = append(resp.Reasons, r)
	}
	return c.JSON(status, resp)
}

func (h *SubmissionHandler) writeSubmitError(c echo.Context, locale string, err error) error {
	var collaborator *gate.CollaboratorError
	switch {
	case errors.Is(err, gate.ErrSubmissionInFlight):
		return Error(c, http.StatusTooManyRequests, translate(h.bundle, locale, "submissionInFlight", nil))
	case errors.As(err, &collaborator):
		logger.Error("submission not stored", "module", "handler", "action", "submit", "resource", "submission", "result", "failed",
			"op", collaborator.Op, "error", collaborator.Err)
		return Error(c, http.StatusServiceUnavailable, translate(h.bundle, locale, "serviceUnavailable", nil))
	default:
		return writeServiceError(c, err)
	}
}

func toSubmissionResponse(s model.Submission) submissionResponse {
	return submissionResponse{
		ID:        itoa(s.ID),
		Email:     s.Email,
		Message:   s.Message,
		Locale:    s.Locale,
		CreatedAt: formatTime(s.CreatedAt),
	}
}

// usableIP drops addresses that say nothing about the client, so the
// submission falls back to the lookup collaborator.
func usableIP(raw string) string {
	ip := net.ParseIP(raw)
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
