package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"collector/internal/access"
)

const (
	AuthCookieName    = "collector_auth"
	SessionCookieName = "collector_session"
	LangCookieName    = "collector_lang"

	sessionContextKey = "session"
	authCookieMaxAge  = 7 * 24 * time.Hour
	langCookieMaxAge  = 365 * 24 * time.Hour
)

// CookieOptions controls the attributes of cookies set by handlers.
type CookieOptions struct {
	Secure bool
}

// SetSession stores the authenticated session on the request context.
func SetSession(c echo.Context, s *access.Session) {
	c.Set(sessionContextKey, s)
}

// CurrentSession returns the authenticated session, or nil.
func CurrentSession(c echo.Context) *access.Session {
	s, _ := c.Get(sessionContextKey).(*access.Session)
	return s
}

// TokenFromRequest reads the bearer token from the Authorization header,
// then from the auth cookie.
func TokenFromRequest(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// clientSessionKey returns the anonymous client session used for rate
// limiting, issuing a new one when the request has none.
func clientSessionKey(c echo.Context, opts CookieOptions) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	key := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func setAuthCookie(c echo.Context, token string, opts CookieOptions) {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(authCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookie(c echo.Context, opts CookieOptions) {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func setLangCookie(c echo.Context, locale string, opts CookieOptions) {
	c.SetCookie(&http.Cookie{
		Name:     LangCookieName,
		Value:    locale,
		Path:     "/",
		MaxAge:   int(langCookieMaxAge.Seconds()),
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(c echo.Context, name string) string {
	if cookie, err := c.Cookie(name); err == nil {
		return cookie.Value
	}
	return ""
}
