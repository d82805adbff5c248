package http

import (
	"net"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "collector/docs"
	"collector/internal/access"
	"collector/internal/handler"
	"collector/internal/metrics"
	"collector/internal/service"
	"collector/pkg/logger"
)

// Handlers groups every HTTP handler mounted by NewRouter. Nil handlers are skipped.
type Handlers struct {
	Submission      *handler.SubmissionHandler
	SubmissionAdmin *handler.SubmissionAdminHandler
	Verification    *handler.VerificationHandler
	I18n            *handler.I18nHandler
	Auth            *handler.AuthHandler
	Analytics       *handler.AnalyticsHandler
	Template        *handler.TemplateHandler
	Rule            *handler.RuleHandler
	Notification    *handler.NotificationHandler
	Outbox          *handler.OutboxHandler
	User            *handler.UserHandler
	Health          *handler.HealthHandler
}

type Options struct {
	StaticDir     string
	EnableSwagger bool
	Metrics       *metrics.Metrics
	Limiter       *IPLimiter

	// TrustedProxies lists CIDRs allowed to set X-Forwarded-For. Empty means
	// the socket peer address is the client IP.
	TrustedProxies []string
}

func NewRouter(h Handlers, authService service.AuthService, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor(opts.TrustedProxies)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(RequestLoggerMiddleware())
	e.Use(opts.Metrics.Middleware())

	if h.Health != nil {
		h.Health.RegisterRoutes(e)
	}
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}
	if opts.EnableSwagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := e.Group("/api", opts.Limiter.Middleware())

	// 公开接口
	if h.Submission != nil {
		h.Submission.RegisterRoutes(api)
	}
	if h.Verification != nil {
		h.Verification.RegisterRoutes(api)
	}
	if h.I18n != nil {
		h.I18n.RegisterRoutes(api)
	}
	if h.Analytics != nil {
		h.Analytics.RegisterPublicRoutes(api)
	}
	if h.Auth != nil {
		h.Auth.RegisterPublicRoutes(api)
	}

	protected := api.Group("", JWTAuthMiddleware(authService))
	if h.Auth != nil {
		h.Auth.RegisterProtectedRoutes(protected)
	}

	readers := protected.Group("", RequireCapability(access.CapRead))
	if h.SubmissionAdmin != nil {
		h.SubmissionAdmin.RegisterReadRoutes(readers)
	}
	if h.Notification != nil {
		h.Notification.RegisterRoutes(readers)
	}
	if h.Outbox != nil {
		h.Outbox.RegisterRoutes(readers)
	}

	if h.SubmissionAdmin != nil {
		h.SubmissionAdmin.RegisterDeleteRoutes(protected.Group("", RequireCapability(access.CapDelete)))
	}

	writers := protected.Group("", RequireCapability(access.CapWrite))
	if h.Template != nil {
		h.Template.RegisterRoutes(writers)
	}
	if h.Rule != nil {
		h.Rule.RegisterRoutes(writers)
	}

	if h.Analytics != nil {
		h.Analytics.RegisterAdminRoutes(protected.Group("", RequireCapability(access.CapViewAnalytics)))
	}
	if h.User != nil {
		h.User.RegisterRoutes(protected.Group("", RequireCapability(access.CapManageUsers)))
	}

	registerStatic(e, opts.StaticDir)

	return e
}

// ipExtractor 默认只认 TCP 对端地址；配置了可信代理才解析 X-Forwarded-For
func ipExtractor(trusted []string) echo.IPExtractor {
	trustOpts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trusted {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("ignoring trusted proxy", "module", "http", "action", "configure", "resource", "router", "result", "failed",
				"cidr", cidr, "error", err)
			continue
		}
		trustOpts = append(trustOpts, echo.TrustIPRange(ipNet))
	}
	if len(trustOpts) == 3 {
		return echo.ExtractIPDirect()
	}
	return echo.ExtractIPFromXFFHeader(trustOpts...)
}
