package http

import (
	nethttp "net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"collector/pkg/logger"
)

// reservedPrefixes are served by the API router and never fall back to the
// single page app.
var reservedPrefixes = []string{"/api", "/healthz", "/metrics", "/swagger"}

const assetCacheControl = "public, max-age=86400"

// registerStatic serves the collector frontend from dir. Unknown paths get
// index.html so client-side routes keep working after a reload.
func registerStatic(e *echo.Echo, dir string) {
	if dir == "" {
		return
	}
	indexPath := filepath.Join(dir, "index.html")
	info, err := os.Stat(indexPath)
	if err != nil || info.IsDir() {
		logger.Warn("static index not found", "module", "http", "action", "register", "resource", "static", "result", "skipped", "path", indexPath)
		return
	}

	fileServer := nethttp.FileServer(nethttp.Dir(dir))

	e.GET("/*", func(c echo.Context) error {
		requestPath := c.Request().URL.Path
		if isReserved(requestPath) {
			return echo.ErrNotFound
		}

		cleanPath := strings.TrimPrefix(path.Clean(requestPath), "/")
		if cleanPath == "." || cleanPath == "" {
			return serveIndex(c, indexPath)
		}

		candidate := filepath.Join(dir, cleanPath)
		fileInfo, err := os.Stat(candidate)
		if err == nil && !fileInfo.IsDir() {
			c.Response().Header().Set("Cache-Control", assetCacheControl)
			fileServer.ServeHTTP(c.Response(), c.Request())
			return nil
		}

		return serveIndex(c, indexPath)
	})
}

func serveIndex(c echo.Context, indexPath string) error {
	// index 不缓存，发布后立即生效
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.File(indexPath)
}

func isReserved(p string) bool {
	for _, prefix := range reservedPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
