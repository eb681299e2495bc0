package repository

import (
	"context"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_FollowUnfollowRoundTrip(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	require.NoError(t, repo.Follow(ctx, a.ID, b.ID))

	following, err := repo.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	reverse, err := repo.IsFollowing(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, reverse, "follows are directed")

	assert.ErrorIs(t, repo.Follow(ctx, a.ID, b.ID), models.ErrAlreadyFollowing)

	require.NoError(t, repo.Unfollow(ctx, a.ID, b.ID))
	following, err = repo.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following)

	assert.ErrorIs(t, repo.Unfollow(ctx, a.ID, b.ID), models.ErrNotFollowing)
}

func TestFollowRepository_FollowersAndFollowing(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	u := createUser(t, db, "u")
	carol := createUser(t, db, "carol")
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	require.NoError(t, repo.Follow(ctx, carol.ID, u.ID))
	require.NoError(t, repo.Follow(ctx, alice.ID, u.ID))
	require.NoError(t, repo.Follow(ctx, u.ID, bob.ID))

	followers, err := repo.Followers(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, usernames(followers))

	following, err := repo.Following(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, usernames(following))

	ids, err := repo.FollowerIDs(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{carol.ID, alice.ID}, ids)

	ids, err = repo.FollowingIDs(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, ids)

	followingCount, followerCount, err := repo.Counts(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followingCount)
	assert.Equal(t, int64(2), followerCount)
}

func TestFollowRepository_FollowMissingUser(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewFollowRepository(db)

	a := createUser(t, db, "alice")
	err := repo.Follow(context.Background(), a.ID, 4242)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
