package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"match-go/internal/config"
	"match-go/internal/storage"
)

var (
	ErrBoostNotEntitled   = errors.New("subscription tier does not include boost")
	ErrBoostAlreadyActive = errors.New("a boost is already active")
)

const defaultBoostDuration = 30 * time.Minute

// BoostRanking is the public candidate-ranking document boost expiries
// are mirrored into, so candidate ordering can sort boosted users first.
// Implemented on Redis; see internal/redis.
type BoostRanking interface {
	SetBoost(ctx context.Context, userID uint, expiresAt time.Time) error
	ActiveBoosts(ctx context.Context) ([]uint, error)
}

// BoostService activates time-limited visibility boosts. It shares the
// account row with the quota path but only ever touches boost_until, so
// a concurrent swipe and boost activation cannot clobber each other.
type BoostService interface {
	// ActivateBoost starts a boost for the user and returns its expiry.
	// An already-active boost is rejected, never extended or stacked.
	ActivateBoost(ctx context.Context, userID uint) (time.Time, error)
}

type boostService struct {
	accountRepo storage.AccountRepository
	ranking     BoostRanking
	tiers       config.TierMap
}

// NewBoostService creates a new BoostService instance.
func NewBoostService(accountRepo storage.AccountRepository, ranking BoostRanking, tiers config.TierMap) BoostService {
	return &boostService{accountRepo: accountRepo, ranking: ranking, tiers: tiers}
}

// ActivateBoost implements the guarded single-boost activation.
func (s *boostService) ActivateBoost(ctx context.Context, userID uint) (time.Time, error) {
	account, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return time.Time{}, ErrAccountNotFound
		}
		return time.Time{}, fmt.Errorf("failed to load account %d: %w", userID, err)
	}

	// Entitlement comes from the tier capability map, not from comparing
	// tier names.
	caps, ok := s.tiers.Lookup(account.Tier)
	if !ok || !caps.Boost {
		return time.Time{}, ErrBoostNotEntitled
	}
	duration := caps.BoostDuration
	if duration <= 0 {
		duration = defaultBoostDuration
	}

	now := time.Now()
	expiresAt := now.Add(duration)

	updated, err := s.accountRepo.SetBoostUntil(ctx, userID, now, expiresAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to activate boost for account %d: %w", userID, err)
	}
	if !updated {
		// The guard rejected the write: the account vanished or a boost
		// is still running.
		if _, err := s.accountRepo.GetByID(ctx, userID); err != nil {
			if storage.IsNotFound(err) {
				return time.Time{}, ErrAccountNotFound
			}
			return time.Time{}, fmt.Errorf("failed to re-check account %d: %w", userID, err)
		}
		return time.Time{}, ErrBoostAlreadyActive
	}

	// The ranking mirror is advisory; the account row is authoritative.
	if s.ranking != nil {
		if err := s.ranking.SetBoost(ctx, userID, expiresAt); err != nil {
			log.Printf("Failed to mirror boost for account %d into the ranking: %v", userID, err)
		}
	}

	return expiresAt, nil
}
