//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collector/internal/access"
	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/logger"
)

const (
	activeUserWindow = 5 * time.Minute
	defaultLogLimit  = 100
)

// ErrSelfModification is returned when an admin tries to demote, disable or
// delete their own account.
var ErrSelfModification = fmt.Errorf("cannot modify own account: %w", ErrForbidden)

type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	SetRole(ctx context.Context, actor *access.Session, userID int64, role string) (*model.User, error)
	SetActive(ctx context.Context, actor *access.Session, userID int64, active bool) (*model.User, error)
	Delete(ctx context.Context, actor *access.Session, userID int64) error
	ListActive(ctx context.Context) ([]model.User, error)
	SecurityLog(ctx context.Context, limit int) ([]model.SecurityEvent, error)
}

type userService struct {
	users    repository.UserRepository
	security repository.SecurityLogRepository
	now      func() time.Time
}

func NewUserService(users repository.UserRepository, security repository.SecurityLogRepository) UserService {
	return &userService{users: users, security: security, now: time.Now}
}

func (s *userService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return redact(users), nil
}

func (s *userService) ListActive(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListActiveSince(ctx, s.now().Add(-activeUserWindow).UTC())
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return redact(users), nil
}

func (s *userService) SetRole(ctx context.Context, actor *access.Session, userID int64, role string) (*model.User, error) {
	if !access.ValidRole(role) {
		return nil, &ValidationError{Problems: []string{"unknown role " + role}}
	}
	if actor != nil && actor.UserID == userID && access.Role(role) != access.RoleAdmin {
		return nil, ErrSelfModification
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, s.mapErr("update role", err)
	}
	s.audit(ctx, actor, "role_changed", fmt.Sprintf("user=%d role=%s", userID, role))
	return s.get(ctx, userID)
}

func (s *userService) SetActive(ctx context.Context, actor *access.Session, userID int64, active bool) (*model.User, error) {
	if actor != nil && actor.UserID == userID && !active {
		return nil, ErrSelfModification
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, s.mapErr("set active", err)
	}
	s.audit(ctx, actor, "status_changed", fmt.Sprintf("user=%d active=%t", userID, active))
	return s.get(ctx, userID)
}

func (s *userService) Delete(ctx context.Context, actor *access.Session, userID int64) error {
	if actor != nil && actor.UserID == userID {
		return ErrSelfModification
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return s.mapErr("delete user", err)
	}
	s.audit(ctx, actor, "user_deleted", fmt.Sprintf("user=%d", userID))
	return nil
}

func (s *userService) SecurityLog(ctx context.Context, limit int) ([]model.SecurityEvent, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	events, err := s.security.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list security log: %w", err)
	}
	return events, nil
}

func (s *userService) get(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.mapErr("get user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) mapErr(op string, err error) error {
	if errors.Is(err, repository.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *userService) audit(ctx context.Context, actor *access.Session, event, details string) {
	var actorID *int64
	if actor != nil {
		id := actor.UserID
		actorID = &id
	}
	logger.Info("user updated", "module", "service", "action", event, "resource", "user", "result", "ok", "details", details)
	if s.security == nil {
		return
	}
	if err := s.security.Create(ctx, model.SecurityEvent{
		UserID:    actorID,
		Event:     event,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		logger.Warn("security log write failed", "module", "service", "action", "log", "resource", "security", "result", "failed",
			"event", event, "error", err)
	}
}

func redact(users []model.User) []model.User {
	out := make([]model.User, len(users))
	for i, u := range users {
		u.PasswordHash = ""
		out[i] = u
	}
	return out
}
