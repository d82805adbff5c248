package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collector/internal/model"
	"collector/internal/repository"
)

func newVerificationFixture(t *testing.T) (*sql.DB, VerificationService, *recordingBroadcaster) {
	t.Helper()
	db, _, mail := newMailStack(t, &recordingSender{})
	hub := &recordingBroadcaster{}
	notifications := NewNotificationService(NotificationDeps{
		Repo:     repository.NewNotificationRepository(db),
		Settings: newSettingsRepoStub(),
		Users:    repository.NewUserRepository(db),
		Mail:     mail,
		Hub:      hub,
	})
	svc := NewVerificationService(repository.NewVerificationRepository(db), mail, notifications, "https://collector.example/")
	return db, svc, hub
}

func TestVerificationService_IssueQueuesEmail(t *testing.T) {
	db, svc, _ := newVerificationFixture(t)

	v, err := svc.Issue(context.Background(), " Alice@Example.com ")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", v.Email)
	require.NotEmpty(t, v.Token)
	require.WithinDuration(t, v.CreatedAt.Add(24*time.Hour), v.ExpiresAt, time.Second)

	var subject, content string
	require.NoError(t, db.QueryRow(`SELECT subject, content FROM pending_emails WHERE to_address = ?`, "alice@example.com").Scan(&subject, &content))
	require.Equal(t, "Verify your email address - Acme", subject)
	require.True(t, strings.Contains(content, "https://collector.example/verify?token="+v.Token), content)
}

func TestVerificationService_IssueRejectsInvalidEmail(t *testing.T) {
	_, svc, _ := newVerificationFixture(t)

	_, err := svc.Issue(context.Background(), "not-an-email")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerificationService_Verify(t *testing.T) {
	_, svc, hub := newVerificationFixture(t)
	ctx := context.Background()

	v, err := svc.Issue(ctx, "bob@example.com")
	require.NoError(t, err)

	verified, err := svc.Verify(ctx, v.Token)
	require.NoError(t, err)
	require.True(t, verified.Verified)
	require.NotNil(t, verified.VerifiedAt)

	events := hub.received()
	require.Len(t, events, 1)
	require.Equal(t, string(model.NotificationEmailVerified), events[0].Type)

	_, err = svc.Verify(ctx, v.Token)
	require.ErrorIs(t, err, ErrInvalidToken, "token cannot be used twice")

	_, err = svc.Verify(ctx, "unknown")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify(ctx, "  ")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerificationService_VerifyExpired(t *testing.T) {
	_, svc, _ := newVerificationFixture(t)
	ctx := context.Background()

	v, err := svc.Issue(ctx, "late@example.com")
	require.NoError(t, err)

	svc.(*verificationService).now = func() time.Time { return time.Now().Add(verificationTTL + time.Minute) }

	_, err = svc.Verify(ctx, v.Token)
	require.ErrorIs(t, err, ErrTokenExpired)
}
