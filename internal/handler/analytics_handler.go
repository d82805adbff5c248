package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"collector/internal/model"
	"collector/internal/service"
)

type AnalyticsHandler struct {
	service service.AnalyticsService
	cookies CookieOptions
}

type trackRequest struct {
	Action   string `json:"action"`
	Referrer string `json:"referrer"`
	Language string `json:"language"`
}

func NewAnalyticsHandler(service service.AnalyticsService, cookies CookieOptions) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, cookies: cookies}
}

func (h *AnalyticsHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/stats", h.PublicStats)
	g.POST("/events", h.Track)
}

func (h *AnalyticsHandler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/admin/analytics/stats", h.DashboardStats)
	g.GET("/admin/analytics/series", h.Series)
	g.GET("/admin/analytics/hourly", h.Hourly)
	g.GET("/admin/analytics/devices", h.Devices)
	g.GET("/admin/analytics/domains", h.Domains)
	g.GET("/admin/analytics/funnel", h.Funnel)
	g.GET("/admin/analytics/metrics", h.Metrics)
	g.GET("/admin/analytics/report", h.Report)
	g.GET("/admin/analytics/export", h.Export)
}

func (h *AnalyticsHandler) PublicStats(c echo.Context) error {
	stats, err := h.service.PublicStats(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Track records a page_view or form_start of the caller's client session.
func (h *AnalyticsHandler) Track(c echo.Context) error {
	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	referrer := req.Referrer
	if referrer == "" {
		referrer = c.Request().Referer()
	}
	err := h.service.Track(c.Request().Context(), model.AnalyticsEvent{
		Action:    model.AnalyticsAction(strings.TrimSpace(req.Action)),
		SessionID: clientSessionKey(c, h.cookies),
		UserAgent: c.Request().UserAgent(),
		Referrer:  referrer,
		Language:  req.Language,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AnalyticsHandler) DashboardStats(c echo.Context) error {
	stats, err := h.service.DashboardStats(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *AnalyticsHandler) Series(c echo.Context) error {
	days, err := intQuery(c, "days", 0)
	if err != nil {
		return invalidRequest(c)
	}
	series, err := h.service.Series(c.Request().Context(), days)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, series)
}

func (h *AnalyticsHandler) Hourly(c echo.Context) error {
	hourly, err := h.service.Hourly(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, hourly)
}

func (h *AnalyticsHandler) Devices(c echo.Context) error {
	devices, err := h.service.Devices(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, devices)
}

func (h *AnalyticsHandler) Domains(c echo.Context) error {
	domains, err := h.service.Domains(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, domains)
}

func (h *AnalyticsHandler) Funnel(c echo.Context) error {
	funnel, err := h.service.Funnel(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, funnel)
}

func (h *AnalyticsHandler) Metrics(c echo.Context) error {
	metrics, err := h.service.Metrics(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}

func (h *AnalyticsHandler) Report(c echo.Context) error {
	report, err := h.service.Report(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="analytics-report.md"`)
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(report))
}

func (h *AnalyticsHandler) Export(c echo.Context) error {
	bundle, err := h.service.Export(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="analytics.json"`)
	return c.JSONPretty(http.StatusOK, bundle, "  ")
}
