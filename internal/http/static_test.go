package http_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	gh "collector/internal/http"
)

func TestRegisterStatic_EmptyDir(t *testing.T) {
	e := echo.New()
	gh.RegisterStatic(e, "")
	require.Empty(t, e.Routes())
}

func TestRegisterStatic_MissingIndex(t *testing.T) {
	e := echo.New()
	gh.RegisterStatic(e, t.TempDir())
	require.Empty(t, e.Routes())
}

func TestRegisterStatic_ServesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("INDEX"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widget.js"), []byte("WIDGET"), 0o600))

	e := echo.New()
	gh.RegisterStatic(e, dir)

	serve := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := serve("/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "INDEX")
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = serve("/widget.js")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "WIDGET")
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	rec = serve("/admin/submissions")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "INDEX")

	for _, reserved := range []string{"/api/test", "/healthz", "/metrics", "/swagger/index.html"} {
		rec = serve(reserved)
		require.Equal(t, http.StatusNotFound, rec.Code, reserved)
	}
}
