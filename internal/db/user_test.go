package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailview/internal/testutil"
)

func TestGetOrCreateUser(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	t.Run("creates new user", func(t *testing.T) {
		userID, err := GetOrCreateUser(ctx, pool, "test@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, userID)
	})

	t.Run("returns existing user", func(t *testing.T) {
		userID1, err := GetOrCreateUser(ctx, pool, "existing@example.com")
		require.NoError(t, err)

		userID2, err := GetOrCreateUser(ctx, pool, "existing@example.com")
		require.NoError(t, err)

		assert.Equal(t, userID1, userID2)
	})
}

func TestGetUser(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	userID, err := GetOrCreateUser(ctx, pool, "reader@example.com")
	require.NoError(t, err)

	user, err := GetUser(ctx, pool, userID)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	_, err = GetUser(ctx, pool, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}
