package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"collector/internal/model"
	"collector/internal/repository"
	"collector/internal/repository/testutil"

	"github.com/stretchr/testify/require"
)

func TestAnalyticsRepository(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewAnalyticsRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: "s1"}))
	require.NoError(t, repo.Create(ctx, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: "s1"}))
	require.NoError(t, repo.Create(ctx, model.AnalyticsEvent{Action: model.ActionPageView, SessionID: "s2"}))
	testutil.SeedEvent(t, db, model.AnalyticsEvent{Action: model.ActionFormSubmit, SessionID: "s2", UserAgent: "UA"})

	sessions, err := repo.CountSessions(ctx, model.ActionPageView)
	require.NoError(t, err)
	require.Equal(t, 2, sessions)

	events, err := repo.CountEvents(ctx, model.ActionPageView)
	require.NoError(t, err)
	require.Equal(t, 3, events)

	submits, err := repo.ListEvents(ctx, model.ActionFormSubmit)
	require.NoError(t, err)
	require.Len(t, submits, 1)
	require.Equal(t, "UA", submits[0].UserAgent)
}

func TestNotificationRepository(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, model.Notification{Kind: model.NotificationNewSubmission, Title: "old", CreatedAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Notification{Kind: model.NotificationCustom, Title: "new", Body: "b", Payload: map[string]string{"email": "a@test.com"}, CreatedAt: now})
	require.NoError(t, err)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].Title)
	require.Equal(t, "a@test.com", list[0].Payload["email"])
	require.Empty(t, list[1].Payload)
}

func TestSecurityLogRepository(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewSecurityLogRepository(db)
	ctx := context.Background()

	uid := int64(42)
	require.NoError(t, repo.Create(ctx, model.SecurityEvent{Event: "login_failed", IPAddress: "203.0.113.9"}))
	require.NoError(t, repo.Create(ctx, model.SecurityEvent{UserID: &uid, Event: "login", CreatedAt: time.Now().Add(time.Second)}))

	events, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "login", events[0].Event)
	require.Equal(t, int64(42), *events[0].UserID)
	require.Nil(t, events[1].UserID)
}

func TestPasswordResetRepository(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewPasswordResetRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := testutil.SeedUser(t, db, model.User{Email: "r@test.com", Name: "R"})
	require.NoError(t, repo.Create(ctx, model.PasswordReset{Token: "live", UserID: userID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, model.PasswordReset{Token: "stale", UserID: userID, ExpiresAt: now.Add(-time.Hour)}))

	got, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)
	require.False(t, got.Used)

	require.NoError(t, repo.MarkUsed(ctx, "live"))
	require.ErrorIs(t, repo.MarkUsed(ctx, "live"), sql.ErrNoRows)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)
}
