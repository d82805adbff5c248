package http_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"collector/internal/access"
	"collector/internal/handler"
	gh "collector/internal/http"
	"collector/internal/service"
	"collector/internal/service/mock"
)

func TestJWTAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mock.NewMockAuthService(ctrl)
	middleware := gh.JWTAuthMiddleware(mockAuth)

	e := echo.New()
	next := func(c echo.Context) error {
		session := handler.CurrentSession(c)
		if session == nil {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, session.Email)
	}

	t.Run("MissingAuth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := middleware(next)(c)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer expired-token")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		mockAuth.EXPECT().ValidateToken(gomock.Any(), "expired-token").Return(nil, service.ErrTokenExpired)

		err := middleware(next)(c)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ValidTokenHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		session := access.NewSession(3, "mod@example.com", "Mod", "moderator")
		mockAuth.EXPECT().ValidateToken(gomock.Any(), "valid-token").Return(&session, nil)
		mockAuth.EXPECT().TouchActivity(gomock.Any(), int64(3)).Return(nil)

		err := middleware(next)(c)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "mod@example.com", rec.Body.String())
	})

	t.Run("ValidTokenCookieThrottlesActivity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: gh.AuthCookieName, Value: "cookie-token"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		session := access.NewSession(3, "mod@example.com", "Mod", "moderator")
		mockAuth.EXPECT().ValidateToken(gomock.Any(), "cookie-token").Return(&session, nil)

		err := middleware(next)(c)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("TouchFailureDoesNotBlock", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer other-token")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		session := access.NewSession(4, "user@example.com", "User", "user")
		mockAuth.EXPECT().ValidateToken(gomock.Any(), "other-token").Return(&session, nil)
		mockAuth.EXPECT().TouchActivity(gomock.Any(), int64(4)).Return(errors.New("db locked"))

		err := middleware(next)(c)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireCapability(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	mw := gh.RequireCapability(access.CapManageUsers)

	tests := []struct {
		name   string
		role   string
		status int
	}{
		{name: "no_session", status: http.StatusUnauthorized},
		{name: "user", role: "user", status: http.StatusForbidden},
		{name: "moderator", role: "moderator", status: http.StatusForbidden},
		{name: "admin", role: "admin", status: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if tc.role != "" {
				s := access.NewSession(1, "x@example.com", "X", tc.role)
				handler.SetSession(c, &s)
			}

			require.NoError(t, mw(next)(c))
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequestLoggerMiddleware_StatusBranches(t *testing.T) {
	e := echo.New()
	mw := gh.RequestLoggerMiddleware()

	tests := []struct {
		name       string
		statusCode int
	}{
		{name: "ok", statusCode: http.StatusOK},
		{name: "client_error", statusCode: http.StatusBadRequest},
		{name: "server_error", statusCode: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := func(c echo.Context) error {
				return c.JSON(tc.statusCode, map[string]string{"status": "ok"})
			}

			err := mw(h)(c)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, rec.Code)
		})
	}
}

func TestRequestLoggerMiddleware_HandlesReturnedError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := gh.RequestLoggerMiddleware()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})(c)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, rec.Code)
}
