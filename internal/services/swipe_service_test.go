package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-go/internal/models"
)

func TestRecordSwipeValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	actor := createTestAccount(t, db, "alice", "free")
	target := createTestAccount(t, db, "bob", "free")

	_, err := svc.RecordSwipe(ctx, actor.ID, target.ID, models.Direction("superlike"))
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = svc.RecordSwipe(ctx, actor.ID, actor.ID, models.DirectionLike)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = svc.RecordSwipe(ctx, actor.ID, 4242, models.DirectionLike)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = svc.RecordSwipe(ctx, 4242, target.ID, models.DirectionLike)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	// None of the rejected calls may have written a ledger entry.
	var count int64
	require.NoError(t, db.Model(&models.Swipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordSwipeReswipeOverwrites(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	actor := createTestAccount(t, db, "alice", "free")
	target := createTestAccount(t, db, "bob", "free")

	res, err := svc.RecordSwipe(ctx, actor.ID, target.ID, models.DirectionLike)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	// Changing the mind is allowed indefinitely and stays a single row.
	res, err = svc.RecordSwipe(ctx, actor.ID, target.ID, models.DirectionPass)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	var swipes []models.Swipe
	require.NoError(t, db.Find(&swipes).Error)
	require.Len(t, swipes, 1)
	assert.Equal(t, models.DirectionPass, swipes[0].Direction)

	// Each accepted swipe consumes a quota unit, re-swipes included.
	var account models.Account
	require.NoError(t, db.First(&account, actor.ID).Error)
	assert.Equal(t, 2, account.DailyCount)
}

func TestMutualLikeCreatesMatch(t *testing.T) {
	db := newTestDB(t)
	producer := &fakeProducer{}
	svc := newTestSwipeService(t, db, producer)
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "free")
	bob := createTestAccount(t, db, "bob", "free")

	res, err := svc.RecordSwipe(ctx, alice.ID, bob.ID, models.DirectionLike)
	require.NoError(t, err)
	assert.Nil(t, res.Match, "one-sided like must not match")

	res, err = svc.RecordSwipe(ctx, bob.ID, alice.ID, models.DirectionLike)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, models.PairKey(alice.ID, bob.ID), res.Match.PairKey)
	assert.Equal(t, alice.ID, res.Match.UserID1)
	assert.Equal(t, bob.ID, res.Match.UserID2)

	// Exactly one celebration event, keyed by the pair.
	msgs := producer.captured()
	require.Len(t, msgs, 1)
	assert.Equal(t, "match-events", msgs[0].Topic)
	var event MatchCreatedEvent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &event))
	assert.Equal(t, res.Match.PairKey, event.PairKey)

	// Liking again returns the existing match and publishes nothing new.
	res, err = svc.RecordSwipe(ctx, bob.ID, alice.ID, models.DirectionLike)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Len(t, producer.captured(), 1)

	var count int64
	require.NoError(t, db.Model(&models.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPassNeverMatches(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "free")
	bob := createTestAccount(t, db, "bob", "free")

	_, err := svc.RecordSwipe(ctx, alice.ID, bob.ID, models.DirectionLike)
	require.NoError(t, err)

	res, err := svc.RecordSwipe(ctx, bob.ID, alice.ID, models.DirectionPass)
	require.NoError(t, err)
	assert.Nil(t, res.Match)

	var count int64
	require.NoError(t, db.Model(&models.Match{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQuotaExceeded(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	actor := createTestAccount(t, db, "alice", "free") // limit 3 in testConfig
	targets := []*models.Account{
		createTestAccount(t, db, "t1", "free"),
		createTestAccount(t, db, "t2", "free"),
		createTestAccount(t, db, "t3", "free"),
		createTestAccount(t, db, "t4", "free"),
	}

	for i := 0; i < 3; i++ {
		res, err := svc.RecordSwipe(ctx, actor.ID, targets[i].ID, models.DirectionPass)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.Equal(t, 3-(i+1), res.Remaining)
	}

	res, err := svc.RecordSwipe(ctx, actor.ID, targets[3].ID, models.DirectionPass)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	require.NotNil(t, res)
	assert.False(t, res.Accepted)
	assert.Zero(t, res.Remaining)

	// The refused swipe left no trace: no fourth ledger row, counter flat.
	var count int64
	require.NoError(t, db.Model(&models.Swipe{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var account models.Account
	require.NoError(t, db.First(&account, actor.ID).Error)
	assert.Equal(t, 3, account.DailyCount)
}

func TestQuotaDayRollover(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	actor := createTestAccount(t, db, "alice", "free")
	target := createTestAccount(t, db, "bob", "free")

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	require.NoError(t, db.Model(actor).Updates(map[string]interface{}{
		"daily_count":     3, // exhausted yesterday
		"last_swipe_date": yesterday,
	}).Error)

	res, err := svc.RecordSwipe(ctx, actor.ID, target.ID, models.DirectionPass)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.Remaining)

	var account models.Account
	require.NoError(t, db.First(&account, actor.ID).Error)
	assert.Equal(t, 1, account.DailyCount)
}

func TestUnlimitedTierBypassesQuota(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	// The premium limit sits at the unlimited threshold.
	actor := createTestAccount(t, db, "alice", "premium")
	target := createTestAccount(t, db, "bob", "free")

	res, err := svc.RecordSwipe(ctx, actor.ID, target.ID, models.DirectionPass)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, -1, res.Remaining)
}

func TestResetSwipesScopedToActor(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "free")
	bob := createTestAccount(t, db, "bob", "free")
	carol := createTestAccount(t, db, "carol", "free")

	_, err := svc.RecordSwipe(ctx, alice.ID, bob.ID, models.DirectionLike)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, alice.ID, carol.ID, models.DirectionPass)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, bob.ID, alice.ID, models.DirectionLike)
	require.NoError(t, err)

	deleted, err := svc.ResetSwipes(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Bob's decision about Alice and the existing match both survive.
	var swipeCount, matchCount int64
	require.NoError(t, db.Model(&models.Swipe{}).Count(&swipeCount).Error)
	require.NoError(t, db.Model(&models.Match{}).Count(&matchCount).Error)
	assert.Equal(t, int64(1), swipeCount)
	assert.Equal(t, int64(1), matchCount)

	// Resetting the ledger does not refund quota.
	var account models.Account
	require.NoError(t, db.First(&account, alice.ID).Error)
	assert.Equal(t, 2, account.DailyCount)
}

func TestConcurrentMutualLikeSingleMatch(t *testing.T) {
	db := newTestDB(t)
	svc := newTestSwipeService(t, db, nil)
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "plus")
	bob := createTestAccount(t, db, "bob", "plus")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.RecordSwipe(ctx, alice.ID, bob.ID, models.DirectionLike)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.RecordSwipe(ctx, bob.ID, alice.ID, models.DirectionLike)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Whatever the interleaving, the pair collapses to at most one match
	// under the canonical key.
	var matches []models.Match
	require.NoError(t, db.Find(&matches).Error)
	require.LessOrEqual(t, len(matches), 1)
	if len(matches) == 1 {
		assert.Equal(t, models.PairKey(alice.ID, bob.ID), matches[0].PairKey)
	}

	// Detection re-run after both swipes are committed always finds it.
	match, err := svc.ProcessLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, models.PairKey(alice.ID, bob.ID), match.PairKey)
}
