package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/i18n"
	"collector/internal/service"
)

type VerificationHandler struct {
	service service.VerificationService
	bundle  *i18n.Bundle
}

type issueVerificationRequest struct {
	Email string `json:"email"`
}

type verificationResponse struct {
	Email      string  `json:"email"`
	Verified   bool    `json:"verified"`
	ExpiresAt  string  `json:"expiresAt,omitempty"`
	VerifiedAt *string `json:"verifiedAt,omitempty"`
	Message    string  `json:"message"`
}

func NewVerificationHandler(service service.VerificationService, bundle *i18n.Bundle) *VerificationHandler {
	return &VerificationHandler{service: service, bundle: bundle}
}

func (h *VerificationHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/verifications", h.Issue)
	g.GET("/verifications/:token", h.Verify)
}

func (h *VerificationHandler) Issue(c echo.Context) error {
	var req issueVerificationRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	locale := requestLocale(h.bundle, c)

	v, err := h.service.Issue(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalid) {
			return Error(c, http.StatusBadRequest, translate(h.bundle, locale, "emailInvalid", nil))
		}
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, verificationResponse{
		Email:     v.Email,
		ExpiresAt: formatTime(v.ExpiresAt),
		Message:   translate(h.bundle, locale, "verificationSent", map[string]string{"email": v.Email}),
	})
}

func (h *VerificationHandler) Verify(c echo.Context) error {
	locale := requestLocale(h.bundle, c)

	v, err := h.service.Verify(c.Request().Context(), c.Param("token"))
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return Error(c, http.StatusBadRequest, translate(h.bundle, locale, "verificationInvalid", nil))
	case errors.Is(err, service.ErrTokenExpired):
		return Error(c, http.StatusBadRequest, translate(h.bundle, locale, "verificationExpired", nil))
	case err != nil:
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, verificationResponse{
		Email:      v.Email,
		Verified:   true,
		VerifiedAt: formatTimePtr(v.VerifiedAt),
		Message:    translate(h.bundle, locale, "verificationVerified", nil),
	})
}
