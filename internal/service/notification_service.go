//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"collector/internal/access"
	"collector/internal/metrics"
	"collector/internal/model"
	"collector/internal/realtime"
	"collector/internal/repository"
	"collector/pkg/logger"
	"collector/pkg/network"
	"collector/pkg/sanitizer"
)

const (
	keyNotificationPreferences = "notifications.preferences"

	defaultHistoryLimit = 50
	webhookTimeout      = 5 * time.Second
	webhookUsername     = "Email Collector Bot"
	webhookIcon         = ":email:"
)

// Notification channels accepted by Test.
const (
	ChannelBrowser = "browser"
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// Broadcaster pushes events to connected dashboards.
type Broadcaster interface {
	Broadcast(ev realtime.Event) int
}

type NotificationService interface {
	Preferences(ctx context.Context) (model.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, prefs model.NotificationPreferences) (model.NotificationPreferences, error)
	// Notify stores n and fans it out to the enabled channels. Channel
	// failures are logged and never returned.
	Notify(ctx context.Context, n model.Notification) (*model.Notification, error)
	History(ctx context.Context, limit int) ([]model.Notification, error)
	Test(ctx context.Context, channel string) error
}

type notificationService struct {
	repo          repository.NotificationRepository
	settings      repository.SettingsRepository
	users         repository.UserRepository
	mail          MailService
	hub           Broadcaster
	clientFactory *network.ClientFactory
	webhookURL    string
	metrics       *metrics.Metrics
}

// NotificationDeps groups the collaborators of the notification service.
type NotificationDeps struct {
	Repo          repository.NotificationRepository
	Settings      repository.SettingsRepository
	Users         repository.UserRepository
	Mail          MailService
	Hub           Broadcaster
	ClientFactory *network.ClientFactory
	WebhookURL    string
	Metrics       *metrics.Metrics
}

func NewNotificationService(deps NotificationDeps) NotificationService {
	if deps.ClientFactory == nil {
		deps.ClientFactory = network.NewClientFactory(nil, nil)
	}
	return &notificationService{
		repo:          deps.Repo,
		settings:      deps.Settings,
		users:         deps.Users,
		mail:          deps.Mail,
		hub:           deps.Hub,
		clientFactory: deps.ClientFactory,
		webhookURL:    deps.WebhookURL,
		metrics:       deps.Metrics,
	}
}

func (s *notificationService) Preferences(ctx context.Context) (model.NotificationPreferences, error) {
	prefs := model.DefaultNotificationPreferences()
	setting, err := s.settings.Get(ctx, keyNotificationPreferences)
	if err != nil {
		return prefs, fmt.Errorf("get preferences: %w", err)
	}
	if setting == nil || setting.Value == "" {
		return prefs, nil
	}
	if err := json.Unmarshal([]byte(setting.Value), &prefs); err != nil {
		logger.Warn("stored notification preferences unreadable", "module", "service", "action", "get", "resource", "notification", "result", "failed", "error", err)
		return model.DefaultNotificationPreferences(), nil
	}
	return prefs, nil
}

func (s *notificationService) UpdatePreferences(ctx context.Context, prefs model.NotificationPreferences) (model.NotificationPreferences, error) {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return prefs, err
	}
	if err := s.settings.Set(ctx, keyNotificationPreferences, string(raw)); err != nil {
		return prefs, fmt.Errorf("save preferences: %w", err)
	}
	return prefs, nil
}

func (s *notificationService) Notify(ctx context.Context, n model.Notification) (*model.Notification, error) {
	stored, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	prefs, err := s.Preferences(ctx)
	if err != nil {
		logger.Warn("notification preferences unavailable, using defaults", "module", "service", "action", "notify", "resource", "notification", "result", "failed", "error", err)
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	if prefs.Browser {
		g.Go(func() error {
			s.record(ChannelBrowser, s.sendBrowser(*stored))
			return nil
		})
	}
	if prefs.Webhook && s.webhookURL != "" {
		g.Go(func() error {
			s.record(ChannelWebhook, s.sendWebhook(gctx, stored.Title+": "+stored.Body))
			return nil
		})
	}
	if prefs.Email {
		g.Go(func() error {
			s.record(ChannelEmail, s.sendEmail(gctx, stored.Title, stored.Body))
			return nil
		})
	}
	_ = g.Wait()
	return stored, nil
}

func (s *notificationService) record(channel string, err error) {
	if err != nil {
		logger.Warn("notification channel failed", "module", "service", "action", "notify", "resource", "notification", "result", "failed",
			"channel", channel, "error", err)
		s.metrics.Notification(channel, "failed")
		return
	}
	s.metrics.Notification(channel, "ok")
}

func (s *notificationService) sendBrowser(n model.Notification) error {
	if s.hub == nil {
		return nil
	}
	s.hub.Broadcast(realtime.Event{
		Type: string(n.Kind),
		Data: map[string]interface{}{
			"id":      n.ID,
			"title":   n.Title,
			"body":    n.Body,
			"payload": n.Payload,
		},
		At: n.CreatedAt,
	})
	return nil
}

type webhookPayload struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
}

func (s *notificationService) sendWebhook(ctx context.Context, text string) error {
	if s.webhookURL == "" {
		return fmt.Errorf("%w: webhook url not configured", ErrInvalid)
	}
	body, err := json.Marshal(webhookPayload{Text: text, Username: webhookUsername, IconEmoji: webhookIcon})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// webhook 地址本身带密钥，错误里只保留 host
	host := network.ExtractHost(s.webhookURL)
	resp, err := s.clientFactory.NewHTTPClient(ctx, webhookTimeout).Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: post webhook %s: %v", ErrUpstream, host, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook %s status %d", ErrUpstream, host, resp.StatusCode)
	}
	return nil
}

// sendEmail queues the notification for every active admin.
func (s *notificationService) sendEmail(ctx context.Context, subject, body string) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}
	content := "<p>" + sanitizer.SanitizeText(body) + "</p>"
	queued := 0
	for _, u := range users {
		if !u.IsActive || access.ParseRole(u.Role) != access.RoleAdmin {
			continue
		}
		if _, err := s.mail.QueueRaw(ctx, model.OutboxEmail{
			To:      u.Email,
			Subject: subject,
			Content: content,
			Kind:    model.EmailNotification,
		}); err != nil {
			return err
		}
		queued++
	}
	if queued == 0 {
		return fmt.Errorf("%w: no active admin to notify", ErrNotFound)
	}
	return nil
}

func (s *notificationService) History(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *notificationService) Test(ctx context.Context, channel string) error {
	const title = "Test Notification"
	const body = "This is a test notification from Email Collector"

	var err error
	switch channel {
	case ChannelBrowser:
		err = s.sendBrowser(model.Notification{Kind: model.NotificationCustom, Title: title, Body: body, CreatedAt: time.Now().UTC()})
	case ChannelWebhook:
		err = s.sendWebhook(ctx, title+": "+body)
	case ChannelEmail:
		err = s.sendEmail(ctx, title, body)
	default:
		return ErrInvalid
	}
	s.record(channel, err)
	return err
}
