// @title Email Collector API
// @version 1.0
// @description Collects email submissions behind validation and rate limiting.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"collector/internal/config"
	"collector/internal/db"
	"collector/internal/gate"
	"collector/internal/handler"
	gh "collector/internal/http"
	"collector/internal/i18n"
	"collector/internal/iplookup"
	"collector/internal/mailer"
	"collector/internal/metrics"
	"collector/internal/ratelimit"
	"collector/internal/realtime"
	"collector/internal/repository"
	"collector/internal/repository/postgres"
	"collector/internal/scheduler"
	"collector/internal/service"
	"collector/pkg/logger"
	"collector/pkg/network"
)

const (
	shutdownTimeout     = 10 * time.Second
	housekeepingEvery   = time.Hour
	defaultDispatchTick = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "module", "main", "action", "load", "resource", "config", "result", "failed", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		logger.Error("server stopped", "module", "main", "action", "run", "resource", "server", "result", "failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	bundle, err := i18n.Load()
	if err != nil {
		return err
	}

	clientFactory := network.NewClientFactory(
		network.StaticProvider{ProxyURL: cfg.Network.ProxyURL},
		network.StaticProvider{IPStack: cfg.Network.IPStack},
	)

	hub := realtime.NewHub()
	defer hub.Close()
	m := metrics.New(func() float64 { return float64(hub.Count()) })

	repos, closeRepos, err := openRepositories(ctx, cfg, sqlDB)
	if err != nil {
		return err
	}
	defer closeRepos()

	limiter, closeLimiter, err := openLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	submissionGate, err := gate.New(repos.submissions, limiter, gate.WithKeyFunc(gate.SessionAndIPKeys))
	if err != nil {
		return err
	}

	var sender mailer.Sender = mailer.LogSender{From: cfg.Mail.From}
	if cfg.Mail.ProviderURL != "" {
		sender = mailer.NewHTTPSender(ctx, clientFactory, cfg.Mail.ProviderURL, cfg.Mail.From, mailer.OAuthConfig{
			TokenURL:     cfg.Mail.TokenURL,
			ClientID:     cfg.Mail.ClientID,
			ClientSecret: cfg.Mail.ClientSecret,
			Scopes:       cfg.Mail.Scopes,
		})
	}

	loc := cfg.Location()
	templateService := service.NewTemplateService(repos.templates, cfg.SiteName)
	if err := templateService.SeedBuiltins(ctx); err != nil {
		return err
	}
	mailService := service.NewMailService(repos.outbox, templateService, sender, m)
	notificationService := service.NewNotificationService(service.NotificationDeps{
		Repo:          repos.notifications,
		Settings:      repos.settings,
		Users:         repos.users,
		Mail:          mailService,
		Hub:           hub,
		ClientFactory: clientFactory,
		WebhookURL:    cfg.WebhookURL,
		Metrics:       m,
	})
	autoResponder := service.NewAutoResponderService(repos.rules, templateService, mailService, loc)

	var resolver iplookup.Resolver
	if cfg.IPLookup.URL != "" {
		resolver = iplookup.New(clientFactory, cfg.IPLookup.URL, cfg.IPLookup.Timeout)
	}

	submissionService := service.NewSubmissionService(service.SubmissionDeps{
		Gate:             submissionGate,
		Resolver:         resolver,
		AutoResponder:    autoResponder,
		Mail:             mailService,
		Notifications:    notificationService,
		Analytics:        repos.analytics,
		Metrics:          m,
		SendConfirmation: cfg.Mail.Confirmation,
	})
	authService := service.NewAuthService(service.AuthDeps{
		Users:    repos.users,
		Resets:   repos.resets,
		Security: repos.security,
		Settings: repos.settings,
		Mail:     mailService,
		BaseURL:  cfg.BaseURL,
		SiteName: cfg.SiteName,
	})
	verificationService := service.NewVerificationService(repos.verifications, mailService, notificationService, cfg.BaseURL)
	analyticsService := service.NewAnalyticsService(repos.analytics, repos.submissions, repos.verifications, loc)
	housekeeping := service.NewHousekeepingService(repos.verifications, repos.resets)

	cookies := handler.CookieOptions{Secure: cfg.CookieSecure}
	ipLimiter := gh.NewIPLimiter(cfg.HTTPLimiter.RPS, cfg.HTTPLimiter.Burst)
	ipLimiter.StartJanitor(ctx)

	e := gh.NewRouter(gh.Handlers{
		Submission:      handler.NewSubmissionHandler(submissionService, bundle, cookies),
		SubmissionAdmin: handler.NewSubmissionAdminHandler(service.NewSubmissionAdminService(repos.submissions, loc)),
		Verification:    handler.NewVerificationHandler(verificationService, bundle),
		I18n:            handler.NewI18nHandler(bundle, cookies),
		Auth:            handler.NewAuthHandler(authService, bundle, cookies),
		Analytics:       handler.NewAnalyticsHandler(analyticsService, cookies),
		Template:        handler.NewTemplateHandler(templateService),
		Rule:            handler.NewRuleHandler(autoResponder),
		Notification:    handler.NewNotificationHandler(notificationService, hub),
		Outbox:          handler.NewOutboxHandler(mailService),
		User:            handler.NewUserHandler(service.NewUserService(repos.users, repos.security)),
		Health:          handler.NewHealthHandler(sqlDB),
	}, authService, gh.Options{
		StaticDir:      cfg.StaticDir,
		EnableSwagger:  cfg.EnableSwagger,
		Metrics:        m,
		Limiter:        ipLimiter,
		TrustedProxies: cfg.TrustedProxies,
	})

	dispatchEvery := cfg.Mail.DispatchInterval
	if dispatchEvery <= 0 {
		dispatchEvery = defaultDispatchTick
	}
	jobs := scheduler.New(
		scheduler.MailDispatchJob(mailService, dispatchEvery),
		scheduler.HousekeepingJob(housekeeping, housekeepingEvery),
	)
	jobs.Start()
	defer jobs.Stop()

	srv := &nethttp.Server{
		Addr:              cfg.Addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "module", "main", "action", "listen", "resource", "server", "result", "ok", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "module", "main", "action", "shutdown", "resource", "server", "result", "ok")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type repositories struct {
	submissions   repository.SubmissionRepository
	verifications repository.VerificationRepository
	analytics     repository.AnalyticsRepository
	templates     repository.TemplateRepository
	rules         repository.RuleRepository
	outbox        repository.OutboxRepository
	notifications repository.NotificationRepository
	settings      repository.SettingsRepository
	users         repository.UserRepository
	resets        repository.PasswordResetRepository
	security      repository.SecurityLogRepository
}

// openRepositories keeps everything in SQLite unless a Postgres URL moves
// the emails collection out.
func openRepositories(ctx context.Context, cfg config.Config, sqlDB *sql.DB) (repositories, func(), error) {
	repos := repositories{
		submissions:   repository.NewSubmissionRepository(sqlDB),
		verifications: repository.NewVerificationRepository(sqlDB),
		analytics:     repository.NewAnalyticsRepository(sqlDB),
		templates:     repository.NewTemplateRepository(sqlDB),
		rules:         repository.NewRuleRepository(sqlDB),
		outbox:        repository.NewOutboxRepository(sqlDB),
		notifications: repository.NewNotificationRepository(sqlDB),
		settings:      repository.NewSettingsRepository(sqlDB),
		users:         repository.NewUserRepository(sqlDB),
		resets:        repository.NewPasswordResetRepository(sqlDB),
		security:      repository.NewSecurityLogRepository(sqlDB),
	}
	if cfg.PostgresURL == "" {
		return repos, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return repositories{}, nil, err
	}
	submissions, err := postgres.NewSubmissionRepository(ctx, pool)
	if err != nil {
		pool.Close()
		return repositories{}, nil, err
	}
	repos.submissions = submissions
	logger.Info("submissions stored in postgres", "module", "main", "action", "open", "resource", "postgres", "result", "ok")
	return repos, pool.Close, nil
}

// openLimiter builds the submission rate limiter for the configured backend.
func openLimiter(ctx context.Context, cfg config.Config) (ratelimit.Limiter, func(), error) {
	switch cfg.RateLimit.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return ratelimit.NewRedisStore(client, cfg.RateLimit.Limit, cfg.RateLimit.Window), func() { _ = client.Close() }, nil
	default:
		store := ratelimit.NewMemoryStore(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		store.StartJanitor(ctx)
		return store, func() {}, nil
	}
}
