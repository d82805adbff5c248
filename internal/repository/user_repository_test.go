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

func TestUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	u, err := repo.Create(ctx, model.User{Email: "admin@test.com", Name: "Ada", PasswordHash: "hash", Role: "admin", IsActive: true})
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	got, err := repo.GetByEmail(ctx, "admin@test.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.IsActive)
	require.Nil(t, got.LastLogin)

	_, err = repo.Create(ctx, model.User{Email: "admin@test.com", Name: "Dup", PasswordHash: "x", Role: "user"})
	require.Error(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestUserRepository_Updates(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	id := testutil.SeedUser(t, db, model.User{Email: "u@test.com", Name: "User", IsActive: true})

	require.NoError(t, repo.UpdateRole(ctx, id, "moderator"))
	require.NoError(t, repo.SetActive(ctx, id, false))
	require.NoError(t, repo.UpdateName(ctx, id, "Renamed"))
	require.NoError(t, repo.UpdatePassword(ctx, id, "newhash"))
	login := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.TouchLogin(ctx, id, login))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "moderator", got.Role)
	require.False(t, got.IsActive)
	require.Equal(t, "Renamed", got.Name)
	require.Equal(t, "newhash", got.PasswordHash)
	require.NotNil(t, got.LastLogin)
	require.True(t, got.LastLogin.Equal(login))
	require.NotNil(t, got.LastActivity)

	require.ErrorIs(t, repo.UpdateRole(ctx, 424242, "admin"), sql.ErrNoRows)
}

func TestUserRepository_ListActiveSince(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	recent := now.Add(-time.Minute)
	stale := now.Add(-time.Hour)
	testutil.SeedUser(t, db, model.User{Email: "recent@test.com", Name: "Recent", IsActive: true, LastActivity: &recent})
	testutil.SeedUser(t, db, model.User{Email: "stale@test.com", Name: "Stale", IsActive: true, LastActivity: &stale})
	testutil.SeedUser(t, db, model.User{Email: "never@test.com", Name: "Never", IsActive: true})

	active, err := repo.ListActiveSince(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "recent@test.com", active[0].Email)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestUserRepository_Delete(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	id := testutil.SeedUser(t, db, model.User{Email: "gone@test.com", Name: "Gone"})
	require.NoError(t, repo.Delete(ctx, id))
	_, err := repo.GetByID(ctx, id)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
