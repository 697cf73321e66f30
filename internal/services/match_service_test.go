package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-go/internal/models"
	"match-go/internal/storage"
)

func TestListMatchesEnrichment(t *testing.T) {
	db := newTestDB(t)
	matchRepo := storage.NewGormMatchRepository(db)
	svc := NewMatchService(matchRepo, storage.NewGormAccountRepository(db))
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "free")
	bob := createTestAccount(t, db, "bob", "free")
	carol := createTestAccount(t, db, "carol", "free")

	for _, other := range []uint{bob.ID, carol.ID} {
		m := &models.Match{UserID1: alice.ID, UserID2: other}
		_, err := matchRepo.GetOrCreate(ctx, m)
		require.NoError(t, err)
	}

	matches, err := svc.ListMatches(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		require.NotNil(t, m.Member)
		assert.NotEqual(t, alice.ID, m.Member.ID, "the enriched member is the other side")
		assert.NotEmpty(t, m.Member.Username)
	}

	// Bob sees the one match he is part of.
	matches, err = svc.ListMatches(ctx, bob.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, alice.ID, matches[0].Member.ID)
}

func TestListMatchesSkipsMissingMembers(t *testing.T) {
	db := newTestDB(t)
	matchRepo := storage.NewGormMatchRepository(db)
	svc := NewMatchService(matchRepo, storage.NewGormAccountRepository(db))
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "free")
	bob := createTestAccount(t, db, "bob", "free")

	m := &models.Match{UserID1: alice.ID, UserID2: bob.ID}
	_, err := matchRepo.GetOrCreate(ctx, m)
	require.NoError(t, err)

	// A match whose counterpart's account is gone is skipped, not an error.
	ghost := &models.Match{UserID1: alice.ID, UserID2: 4242}
	_, err = matchRepo.GetOrCreate(ctx, ghost)
	require.NoError(t, err)

	matches, err := svc.ListMatches(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, bob.ID, matches[0].Member.ID)
}

func TestGetMatchMembership(t *testing.T) {
	db := newTestDB(t)
	matchRepo := storage.NewGormMatchRepository(db)
	svc := NewMatchService(matchRepo, storage.NewGormAccountRepository(db))
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "free")
	bob := createTestAccount(t, db, "bob", "free")
	eve := createTestAccount(t, db, "eve", "free")

	m := &models.Match{UserID1: alice.ID, UserID2: bob.ID}
	_, err := matchRepo.GetOrCreate(ctx, m)
	require.NoError(t, err)

	got, err := svc.GetMatch(ctx, alice.ID, m.PairKey)
	require.NoError(t, err)
	assert.Equal(t, m.PairKey, got.PairKey)

	_, err = svc.GetMatch(ctx, eve.ID, m.PairKey)
	assert.ErrorIs(t, err, ErrNotMatchMember)

	_, err = svc.GetMatch(ctx, alice.ID, "404_405")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestUpdatePreview(t *testing.T) {
	db := newTestDB(t)
	matchRepo := storage.NewGormMatchRepository(db)
	svc := NewMatchService(matchRepo, storage.NewGormAccountRepository(db))
	ctx := context.Background()

	alice := createTestAccount(t, db, "alice", "free")
	bob := createTestAccount(t, db, "bob", "free")

	m := &models.Match{UserID1: alice.ID, UserID2: bob.ID}
	_, err := matchRepo.GetOrCreate(ctx, m)
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, svc.UpdatePreview(ctx, m.PairKey, "see you at 8", at))

	reloaded, err := svc.GetMatch(ctx, alice.ID, m.PairKey)
	require.NoError(t, err)
	assert.Equal(t, "see you at 8", reloaded.LastMessagePreview)

	err = svc.UpdatePreview(ctx, "404_405", "nobody home", at)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
