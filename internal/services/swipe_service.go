package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"match-go/internal/config"
	"match-go/internal/kafka"
	"match-go/internal/models"
	"match-go/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrInvalidTarget       = errors.New("invalid swipe target")
	ErrInvalidDirection    = errors.New("invalid swipe direction")
	ErrAccountNotFound     = errors.New("account not found")
	ErrQuotaExceeded       = errors.New("daily swipe quota exceeded")
	ErrTransactionConflict = errors.New("storage conflict, please retry")
)

// MatchCreatedEvent is the Kafka payload published when a reciprocal like
// turns into a match. The notify server fans it out to both members.
type MatchCreatedEvent struct {
	MatchID   uint      `json:"matchId"`
	PairKey   string    `json:"pairKey"`
	UserID1   uint      `json:"userId1"`
	UserID2   uint      `json:"userId2"`
	Timestamp time.Time `json:"timestamp"`
}

// SwipeResult is the outcome of one RecordSwipe call.
type SwipeResult struct {
	Accepted bool `json:"accepted"`
	// Remaining is the quota left after this swipe; -1 means the tier is
	// not limited.
	Remaining int `json:"remaining"`
	// Match is set when this swipe completed a mutual like.
	Match *models.Match `json:"match,omitempty"`
}

// SwipeService is the engine's write path: quota authorization, ledger
// writes and match detection.
type SwipeService interface {
	// RecordSwipe authorizes the actor's quota, persists the decision and,
	// for a like, runs match detection. Quota consumption and the ledger
	// write commit in one transaction: either both happen or neither does.
	RecordSwipe(ctx context.Context, actorID, targetID uint, direction models.Direction) (*SwipeResult, error)

	// ProcessLike re-runs match detection for an already-recorded like.
	// Safe to call repeatedly; it never creates a second match for a pair.
	ProcessLike(ctx context.Context, actorID, targetID uint) (*models.Match, error)

	// ResetSwipes deletes every decision the actor has recorded and
	// returns the number of deleted records. Quota counters, matches and
	// other users' decisions about the actor are untouched.
	ResetSwipes(ctx context.Context, actorID uint) (int64, error)
}

type swipeService struct {
	db          *gorm.DB
	accountRepo storage.AccountRepository
	swipeRepo   storage.SwipeRepository
	matchRepo   storage.MatchRepository
	producer    kafka.MessageProducer
	kafkaCfg    config.KafkaConfig
	quotaCfg    config.QuotaConfig
	tiers       config.TierMap
	location    *time.Location
}

// NewSwipeService creates a new SwipeService instance.
func NewSwipeService(
	db *gorm.DB,
	accountRepo storage.AccountRepository,
	swipeRepo storage.SwipeRepository,
	matchRepo storage.MatchRepository,
	producer kafka.MessageProducer,
	cfg config.Config,
) (SwipeService, error) {
	loc, err := time.LoadLocation(cfg.Quota.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid quota timezone %q: %w", cfg.Quota.Timezone, err)
	}
	return &swipeService{
		db:          db,
		accountRepo: accountRepo,
		swipeRepo:   swipeRepo,
		matchRepo:   matchRepo,
		producer:    producer,
		kafkaCfg:    cfg.Kafka,
		quotaCfg:    cfg.Quota,
		tiers:       cfg.Tiers,
		location:    loc,
	}, nil
}

// today returns the current calendar date in the engine's configured
// timezone. The day boundary is fixed server-side; client clocks have no say.
func (s *swipeService) today() string {
	return time.Now().In(s.location).Format("2006-01-02")
}

// RecordSwipe implements the composite swipe operation.
func (s *swipeService) RecordSwipe(ctx context.Context, actorID, targetID uint, direction models.Direction) (*SwipeResult, error) {
	if !direction.Valid() {
		return nil, ErrInvalidDirection
	}
	if targetID == 0 || actorID == targetID {
		return nil, ErrInvalidTarget
	}

	// The target must be a real account; a dangling id is rejected with
	// no state change.
	if _, err := s.accountRepo.GetBasicInfoByID(ctx, targetID); err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrInvalidTarget
		}
		return nil, fmt.Errorf("failed to check swipe target %d: %w", targetID, err)
	}

	actor, err := s.accountRepo.GetByID(ctx, actorID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %d: %w", actorID, err)
	}

	caps, ok := s.tiers.Lookup(actor.Tier)
	if !ok {
		return nil, fmt.Errorf("no tier configuration for %q and no free fallback", actor.Tier)
	}
	limit := caps.DailyLimit
	unlimited := limit >= s.quotaCfg.UnlimitedThreshold
	today := s.today()

	// Quota consumption and the ledger write are one atomic unit. A
	// failure between the two would otherwise consume quota without a
	// recorded decision, or record a decision for free.
	txFn := func(tx *gorm.DB) error {
		txAccounts := storage.NewGormAccountRepository(tx)
		txSwipes := storage.NewGormSwipeRepository(tx)

		consumed, err := txAccounts.ConsumeQuota(ctx, actorID, today, limit, !unlimited)
		if err != nil {
			return err
		}
		if !consumed {
			// The guard rejected the increment: either the account is
			// gone or the daily limit is reached.
			if _, err := txAccounts.GetByID(ctx, actorID); err != nil {
				if storage.IsNotFound(err) {
					return ErrAccountNotFound
				}
				return err
			}
			return ErrQuotaExceeded
		}

		return txSwipes.Upsert(ctx, &models.Swipe{
			ActorID:   actorID,
			TargetID:  targetID,
			Direction: direction,
			SwipedAt:  time.Now(),
		})
	}

	if err := s.runWithRetry(ctx, txFn); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return &SwipeResult{Accepted: false, Remaining: 0}, ErrQuotaExceeded
		}
		return nil, err
	}

	result := &SwipeResult{Accepted: true, Remaining: -1}
	if !unlimited {
		// Informational only; a concurrent swipe may have consumed more
		// by the time the caller reads this.
		if refreshed, err := s.accountRepo.GetByID(ctx, actorID); err == nil {
			remaining := limit - refreshed.DailyCount
			if remaining < 0 {
				remaining = 0
			}
			result.Remaining = remaining
		} else {
			result.Remaining = 0
			log.Printf("Failed to refresh quota for account %d after swipe: %v", actorID, err)
		}
	}

	if direction == models.DirectionLike {
		match, err := s.ProcessLike(ctx, actorID, targetID)
		if err != nil {
			// The swipe is committed; replaying the request is safe and
			// will re-run detection.
			return nil, fmt.Errorf("swipe recorded but match detection failed: %w", err)
		}
		result.Match = match
	}

	return result, nil
}

// ProcessLike runs match detection for the like (actorID -> targetID).
func (s *swipeService) ProcessLike(ctx context.Context, actorID, targetID uint) (*models.Match, error) {
	pairKey := models.PairKey(actorID, targetID)

	// Short-circuit: a repeated like must not re-detect a match that
	// already exists.
	existing, err := s.matchRepo.GetByPairKey(ctx, pairKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing match %s: %w", pairKey, err)
	}
	if existing != nil {
		return existing, nil
	}

	reverse, err := s.swipeRepo.Get(ctx, targetID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check reciprocal swipe for %s: %w", pairKey, err)
	}
	if reverse == nil || reverse.Direction != models.DirectionLike {
		return nil, nil // no reciprocity, no match
	}

	match := &models.Match{UserID1: actorID, UserID2: targetID}
	created, err := s.matchRepo.GetOrCreate(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to create match %s: %w", pairKey, err)
	}

	if created {
		s.publishMatchCreated(ctx, match)
	}
	return match, nil
}

// publishMatchCreated emits the match event for the notify server.
// Delivery is best effort: the match row is the source of truth and a
// lost celebration must not fail the swipe.
func (s *swipeService) publishMatchCreated(ctx context.Context, match *models.Match) {
	if s.producer == nil {
		return
	}
	event := MatchCreatedEvent{
		MatchID:   match.ID,
		PairKey:   match.PairKey,
		UserID1:   match.UserID1,
		UserID2:   match.UserID2,
		Timestamp: time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal match event for %s: %v", match.PairKey, err)
		return
	}
	if err := s.producer.SendMessage(ctx, s.kafkaCfg.MatchEventsTopic, []byte(match.PairKey), payload); err != nil {
		log.Printf("Failed to publish match event for %s: %v", match.PairKey, err)
	}
}

// ResetSwipes implements the debug reset-swipes operation.
func (s *swipeService) ResetSwipes(ctx context.Context, actorID uint) (int64, error) {
	deleted, err := s.swipeRepo.DeleteAllByActor(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset swipes for account %d: %w", actorID, err)
	}
	log.Printf("Reset %d swipes for account %d", deleted, actorID)
	return deleted, nil
}

// runWithRetry executes the transaction, retrying a bounded number of
// times on transient storage conflicts before surfacing
// ErrTransactionConflict. Business sentinels pass through untouched.
func (s *swipeService) runWithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempts := s.quotaCfg.TxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrAccountNotFound) {
			return err
		}
		if !isRetryableTxError(err) {
			return fmt.Errorf("swipe transaction failed: %w", err)
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.quotaCfg.TxRetryBackoff * time.Duration(attempt)):
			}
		}
	}
	log.Printf("Swipe transaction still conflicting after %d attempts: %v", attempts, err)
	return ErrTransactionConflict
}

// isRetryableTxError classifies transient conflict errors from the
// underlying store (postgres serialization/deadlock, sqlite busy).
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
