package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"match-go/internal/models"
)

func TestMatchGetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMatchRepository(db)
	ctx := context.Background()

	match := &models.Match{UserID1: 9, UserID2: 2}
	created, err := repo.GetOrCreate(ctx, match)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2_9", match.PairKey)
	assert.Equal(t, uint(2), match.UserID1)

	// Second create for the same pair, submitted in the opposite order,
	// resolves to the existing row.
	dup := &models.Match{UserID1: 2, UserID2: 9}
	created, err = repo.GetOrCreate(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, match.ID, dup.ID)

	var count int64
	require.NoError(t, db.Model(&models.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMatchGetByPairKeyAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMatchRepository(db)

	match, err := repo.GetByPairKey(context.Background(), "1_2")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchListForUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMatchRepository(db)
	ctx := context.Background()

	for _, pair := range [][2]uint{{1, 2}, {1, 3}, {4, 5}} {
		m := &models.Match{UserID1: pair[0], UserID2: pair[1]}
		_, err := repo.GetOrCreate(ctx, m)
		require.NoError(t, err)
	}

	matches, err := repo.ListForUser(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.True(t, m.Contains(1))
	}

	matches, err = repo.ListForUser(ctx, 5, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "4_5", matches[0].PairKey)

	matches, err = repo.ListForUser(ctx, 1, 1, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = repo.ListForUser(ctx, 99, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchUpdatePreview(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMatchRepository(db)
	ctx := context.Background()

	m := &models.Match{UserID1: 1, UserID2: 2}
	_, err := repo.GetOrCreate(ctx, m)
	require.NoError(t, err)

	at := time.Now().Truncate(time.Second)
	require.NoError(t, repo.UpdatePreview(ctx, m.PairKey, "hey there", at))

	reloaded, err := repo.GetByPairKey(ctx, m.PairKey)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "hey there", reloaded.LastMessagePreview)
	require.NotNil(t, reloaded.LastMessageAt)

	// A preview for a match that does not exist must not create one.
	err = repo.UpdatePreview(ctx, "7_8", "ghost", at)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
