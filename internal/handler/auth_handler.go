package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/access"
	"collector/internal/i18n"
	"collector/internal/model"
	"collector/internal/service"
)

type AuthHandler struct {
	service service.AuthService
	bundle  *i18n.Bundle
	cookies CookieOptions
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

type authStatusResponse struct {
	HasUsers      bool `json:"hasUsers"`
	Authenticated bool `json:"authenticated"`
}

type userResponse struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	IsActive     bool     `json:"isActive"`
	Capabilities []string `json:"capabilities"`
	CreatedAt    string   `json:"createdAt"`
	LastLogin    *string  `json:"lastLogin,omitempty"`
	LastActivity *string  `json:"lastActivity,omitempty"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func NewAuthHandler(service service.AuthService, bundle *i18n.Bundle, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{service: service, bundle: bundle, cookies: cookies}
}

func (h *AuthHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/auth/status", h.GetStatus)
	g.POST("/auth/signup", h.SignUp)
	g.POST("/auth/signin", h.SignIn)
	g.POST("/auth/signout", h.SignOut)
	g.POST("/auth/password-strength", h.PasswordStrength)
	g.POST("/auth/password-reset", h.RequestPasswordReset)
	g.POST("/auth/password-reset/confirm", h.ResetPassword)
}

func (h *AuthHandler) RegisterProtectedRoutes(g *echo.Group) {
	g.GET("/auth/me", h.GetCurrentUser)
	g.PUT("/auth/profile", h.UpdateProfile)
}

func (h *AuthHandler) GetStatus(c echo.Context) error {
	hasUsers, err := h.service.HasUsers(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	authenticated := false
	if token := TokenFromRequest(c); token != "" {
		if _, err := h.service.ValidateToken(c.Request().Context(), token); err == nil {
			authenticated = true
		}
	}
	return c.JSON(http.StatusOK, authStatusResponse{HasUsers: hasUsers, Authenticated: authenticated})
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	resp, err := h.service.SignUp(c.Request().Context(), service.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	}, clientInfo(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	setAuthCookie(c, resp.Token, h.cookies)
	return c.JSON(http.StatusCreated, toAuthResponse(resp))
}

func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	resp, err := h.service.SignIn(c.Request().Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	setAuthCookie(c, resp.Token, h.cookies)
	return c.JSON(http.StatusOK, toAuthResponse(resp))
}

// SignOut always clears the cookie; the security log entry needs a valid token.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if token := TokenFromRequest(c); token != "" {
		if session, err := h.service.ValidateToken(c.Request().Context(), token); err == nil {
			if err := h.service.SignOut(c.Request().Context(), session, clientInfo(c)); err != nil {
				return writeServiceError(c, err)
			}
		}
	}
	clearAuthCookie(c, h.cookies)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) PasswordStrength(c echo.Context) error {
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	return c.JSON(http.StatusOK, h.service.PasswordStrength(req.Password))
}

func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	locale := requestLocale(h.bundle, c)
	if err := h.service.RequestPasswordReset(c.Request().Context(), req.Email, clientInfo(c)); err != nil {
		if errors.Is(err, service.ErrInvalid) {
			return Error(c, http.StatusBadRequest, translate(h.bundle, locale, "emailInvalid", nil))
		}
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, messageResponse{
		Message: translate(h.bundle, locale, "passwordResetSent", map[string]string{"email": req.Email}),
	})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req passwordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	if err := h.service.ResetPassword(c.Request().Context(), req.Token, req.Password, clientInfo(c)); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) GetCurrentUser(c echo.Context) error {
	session := CurrentSession(c)
	if session == nil {
		return Error(c, http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.service.CurrentUser(c.Request().Context(), session.UserID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(*user))
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	session := CurrentSession(c)
	if session == nil {
		return Error(c, http.StatusUnauthorized, "unauthorized")
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	user, err := h.service.UpdateProfile(c.Request().Context(), session.UserID, req.Name)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(*user))
}

func clientInfo(c echo.Context) service.ClientInfo {
	return service.ClientInfo{IPAddress: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

func toAuthResponse(resp *service.AuthResponse) authResponse {
	return authResponse{
		Token:     resp.Token,
		ExpiresAt: formatTime(resp.ExpiresAt),
		User:      toUserResponse(resp.User),
	}
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:           itoa(u.ID),
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(access.ParseRole(u.Role)),
		IsActive:     u.IsActive,
		Capabilities: access.CapabilitiesFor(access.Role(u.Role)).Names(),
		CreatedAt:    formatTime(u.CreatedAt),
		LastLogin:    formatTimePtr(u.LastLogin),
		LastActivity: formatTimePtr(u.LastActivity),
	}
}
