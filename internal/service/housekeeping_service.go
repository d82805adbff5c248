//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"fmt"
	"time"

	"collector/internal/repository"
	"collector/pkg/logger"
)

// PurgeResult counts the rows removed by one housekeeping run.
type PurgeResult struct {
	Verifications  int64 `json:"verifications"`
	PasswordResets int64 `json:"passwordResets"`
}

type HousekeepingService interface {
	Purge(ctx context.Context) (PurgeResult, error)
}

type housekeepingService struct {
	verifications repository.VerificationRepository
	resets        repository.PasswordResetRepository
	now           func() time.Time
}

func NewHousekeepingService(verifications repository.VerificationRepository, resets repository.PasswordResetRepository) HousekeepingService {
	return &housekeepingService{verifications: verifications, resets: resets, now: time.Now}
}

// Purge deletes expired verification tokens and expired or used password resets.
func (s *housekeepingService) Purge(ctx context.Context) (PurgeResult, error) {
	var result PurgeResult
	now := s.now().UTC()

	n, err := s.verifications.DeleteExpired(ctx, now)
	if err != nil {
		return result, fmt.Errorf("purge verifications: %w", err)
	}
	result.Verifications = n

	n, err = s.resets.DeleteExpired(ctx, now)
	if err != nil {
		return result, fmt.Errorf("purge password resets: %w", err)
	}
	result.PasswordResets = n

	if result.Verifications > 0 || result.PasswordResets > 0 {
		logger.Info("housekeeping purged expired tokens", "module", "service", "action", "purge", "resource", "token", "result", "ok",
			"verifications", result.Verifications, "password_resets", result.PasswordResets)
	}
	return result, nil
}
