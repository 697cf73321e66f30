package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-go/internal/models"
)

func TestSwipeUpsertOverwritesInPlace(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSwipeRepository(db)
	ctx := context.Background()

	first := &models.Swipe{ActorID: 1, TargetID: 2, Direction: models.DirectionLike, SwipedAt: time.Now().Add(-time.Minute)}
	require.NoError(t, repo.Upsert(ctx, first))

	// Re-swiping the same pair flips the direction without a second row.
	second := &models.Swipe{ActorID: 1, TargetID: 2, Direction: models.DirectionPass, SwipedAt: time.Now()}
	require.NoError(t, repo.Upsert(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.Swipe{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.Get(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.DirectionPass, stored.Direction)
}

func TestSwipeGetDistinguishesDirections(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSwipeRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Swipe{ActorID: 1, TargetID: 2, Direction: models.DirectionLike, SwipedAt: time.Now()}))

	// (1,2) and (2,1) are distinct ledger entries.
	reverse, err := repo.Get(ctx, 2, 1)
	require.NoError(t, err)
	assert.Nil(t, reverse)

	forward, err := repo.Get(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, forward)
	assert.Equal(t, models.DirectionLike, forward.Direction)
}

func TestSwipeDeleteAllByActor(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSwipeRepository(db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Upsert(ctx, &models.Swipe{ActorID: 1, TargetID: 2, Direction: models.DirectionLike, SwipedAt: now}))
	require.NoError(t, repo.Upsert(ctx, &models.Swipe{ActorID: 1, TargetID: 3, Direction: models.DirectionPass, SwipedAt: now}))
	require.NoError(t, repo.Upsert(ctx, &models.Swipe{ActorID: 2, TargetID: 1, Direction: models.DirectionLike, SwipedAt: now}))

	deleted, err := repo.DeleteAllByActor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Swipes targeting the actor survive a reset.
	other, err := repo.Get(ctx, 2, 1)
	require.NoError(t, err)
	assert.NotNil(t, other)
}
