package http

import (
	nethttp "net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"collector/internal/access"
	"collector/internal/handler"
	"collector/internal/service"
	"collector/pkg/logger"
)

// AuthCookieName is the cookie carrying the signed session token.
const AuthCookieName = handler.AuthCookieName

// activityInterval throttles last-activity writes per user.
const activityInterval = time.Minute

// JWTAuthMiddleware resolves the session from the bearer token or the auth
// cookie and rejects the request when it is missing or invalid.
func JWTAuthMiddleware(authService service.AuthService) echo.MiddlewareFunc {
	var (
		mu      sync.Mutex
		touched = make(map[int64]time.Time)
	)
	shouldTouch := func(userID int64, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()
		if last, ok := touched[userID]; ok && now.Sub(last) < activityInterval {
			return false
		}
		touched[userID] = now
		return true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := handler.TokenFromRequest(c)
			if token == "" {
				return handler.Error(c, nethttp.StatusUnauthorized, "unauthorized")
			}
			session, err := authService.ValidateToken(c.Request().Context(), token)
			if err != nil || session == nil {
				return handler.Error(c, nethttp.StatusUnauthorized, "unauthorized")
			}
			handler.SetSession(c, session)

			if shouldTouch(session.UserID, time.Now()) {
				if err := authService.TouchActivity(c.Request().Context(), session.UserID); err != nil {
					logger.Warn("touch activity failed", "module", "http", "action", "touch", "resource", "user", "result", "failed",
						"user_id", session.UserID, "error", err)
				}
			}
			return next(c)
		}
	}
}

// RequireCapability rejects sessions whose role lacks capability. It must run
// after JWTAuthMiddleware.
func RequireCapability(capability access.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := handler.CurrentSession(c)
			if session == nil {
				return handler.Error(c, nethttp.StatusUnauthorized, "unauthorized")
			}
			if !access.HasCapability(session, capability) {
				logger.Warn("capability denied", "module", "http", "action", "authorize", "resource", capability.String(), "result", "denied",
					"user_id", session.UserID, "role", string(session.Role), "path", c.Path())
				return handler.Error(c, nethttp.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// RequestLoggerMiddleware logs one line per request, with the level chosen by status.
func RequestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			status := res.Status
			args := []any{
				"module", "http",
				"action", "request",
				"resource", req.Method + " " + c.Path(),
				"result", nethttp.StatusText(status),
				"status", status,
				"path", req.URL.Path,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
			}
			switch {
			case status >= nethttp.StatusInternalServerError:
				logger.Error("request failed", args...)
			case status >= nethttp.StatusBadRequest:
				logger.Warn("request rejected", args...)
			default:
				logger.Debug("request served", args...)
			}
			return nil
		}
	}
}
