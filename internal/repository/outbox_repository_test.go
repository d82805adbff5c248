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

func TestOutboxRepository_EnqueueAndListPending(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewOutboxRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := repo.Enqueue(ctx, model.OutboxEmail{To: "a@test.com", Subject: "One", Content: "c", Kind: model.EmailAutoResponse, CreatedAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	require.Len(t, first.MessageID, 26)
	require.Equal(t, model.EmailPending, first.Status)

	ruleID := int64(7)
	second, err := repo.Enqueue(ctx, model.OutboxEmail{To: "b@test.com", Subject: "Two", Content: "c", Kind: model.EmailConfirmation, RuleID: &ruleID, CreatedAt: now})
	require.NoError(t, err)
	require.NotEqual(t, first.MessageID, second.MessageID)

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.NotNil(t, pending[1].RuleID)
	require.Equal(t, int64(7), *pending[1].RuleID)
	require.Nil(t, pending[0].SentAt)
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewOutboxRepository(db)
	ctx := context.Background()

	sent, err := repo.Enqueue(ctx, model.OutboxEmail{To: "a@test.com", Subject: "s", Content: "c", Kind: model.EmailNotification})
	require.NoError(t, err)
	retry, err := repo.Enqueue(ctx, model.OutboxEmail{To: "b@test.com", Subject: "s", Content: "c", Kind: model.EmailNotification})
	require.NoError(t, err)
	failed, err := repo.Enqueue(ctx, model.OutboxEmail{To: "c@test.com", Subject: "s", Content: "c", Kind: model.EmailNotification})
	require.NoError(t, err)

	require.NoError(t, repo.MarkSent(ctx, sent.ID, time.Now()))
	require.NoError(t, repo.MarkAttemptFailed(ctx, retry.ID, "timeout", false))
	require.NoError(t, repo.MarkAttemptFailed(ctx, failed.ID, "rejected", true))
	require.ErrorIs(t, repo.MarkSent(ctx, 12345, time.Now()), sql.ErrNoRows)

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, retry.ID, pending[0].ID)
	require.Equal(t, 1, pending[0].Attempts)
	require.Equal(t, "timeout", pending[0].LastError)

	sentList, err := repo.List(ctx, model.EmailSent, 10)
	require.NoError(t, err)
	require.Len(t, sentList, 1)
	require.NotNil(t, sentList[0].SentAt)

	all, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, map[model.EmailStatus]int{
		model.EmailPending: 1,
		model.EmailSent:    1,
		model.EmailFailed:  1,
	}, counts)
}

func TestOutboxRepository_CountByStatus_Empty(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewOutboxRepository(db)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 3)
	require.Zero(t, counts[model.EmailPending])
}
