//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"collector/internal/gate"
	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/logger"
)

const verificationTTL = 24 * time.Hour

type VerificationService interface {
	Issue(ctx context.Context, email string) (*model.Verification, error)
	Verify(ctx context.Context, token string) (*model.Verification, error)
}

type verificationService struct {
	repo          repository.VerificationRepository
	mail          MailService
	notifications NotificationService
	baseURL       string
	now           func() time.Time
}

func NewVerificationService(repo repository.VerificationRepository, mail MailService, notifications NotificationService, baseURL string) VerificationService {
	return &verificationService{
		repo:          repo,
		mail:          mail,
		notifications: notifications,
		baseURL:       strings.TrimRight(baseURL, "/"),
		now:           time.Now,
	}
}

// Issue stores a fresh token for email and queues the verification email.
func (s *verificationService) Issue(ctx context.Context, email string) (*model.Verification, error) {
	if !gate.ValidateEmail(email) {
		return nil, ErrInvalid
	}
	email = gate.NormalizeEmail(email)
	now := s.now().UTC()

	v, err := s.repo.Create(ctx, model.Verification{
		Email:     email,
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(verificationTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create verification: %w", err)
	}

	link := s.baseURL + "/verify?token=" + url.QueryEscape(v.Token)
	if _, err := s.mail.Queue(ctx, MailRequest{
		To:         email,
		TemplateID: TemplateVerification,
		Data:       map[string]string{"verification_link": link},
		Kind:       model.EmailVerification,
	}); err != nil {
		return nil, fmt.Errorf("queue verification email: %w", err)
	}

	logger.Info("verification issued", "module", "service", "action", "issue", "resource", "verification", "result", "ok", "email", email)
	return v, nil
}

func (s *verificationService) Verify(ctx context.Context, token string) (*model.Verification, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	v, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	if v.Verified {
		return nil, ErrInvalidToken
	}
	now := s.now().UTC()
	if now.After(v.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	if err := s.repo.MarkVerified(ctx, v.ID, now); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	v.Verified = true
	v.VerifiedAt = &now

	if s.notifications != nil {
		if _, err := s.notifications.Notify(ctx, model.Notification{
			Kind:    model.NotificationEmailVerified,
			Title:   "Email Verified!",
			Body:    v.Email + " has been verified",
			Payload: map[string]string{"email": v.Email, "verifiedAt": now.Format(time.RFC3339)},
		}); err != nil {
			logger.Warn("verification notification failed", "module", "service", "action", "verify", "resource", "notification", "result", "failed", "error", err)
		}
	}

	logger.Info("email verified", "module", "service", "action", "verify", "resource", "verification", "result", "ok", "email", v.Email)
	return v, nil
}
