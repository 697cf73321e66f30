package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"match-go/internal/models"
	"match-go/internal/storage"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotMatchMember = errors.New("user is not a member of this match")
)

// MatchService is the read/maintenance surface of the match registry,
// consumed by the UI layer and the chat collaborator.
type MatchService interface {
	// ListMatches returns the user's matches newest first, each enriched
	// with the other member's public info.
	ListMatches(ctx context.Context, userID uint, limit, offset int) ([]*models.MatchWithMember, error)

	// GetMatch fetches one match by canonical key, verifying the caller
	// is one of its members.
	GetMatch(ctx context.Context, userID uint, pairKey string) (*models.Match, error)

	// UpdatePreview records the latest chat message preview on an
	// existing match. Called by the chat collaborator; never creates.
	UpdatePreview(ctx context.Context, pairKey string, preview string, at time.Time) error
}

type matchService struct {
	matchRepo   storage.MatchRepository
	accountRepo storage.AccountRepository
}

// NewMatchService creates a new MatchService instance.
func NewMatchService(matchRepo storage.MatchRepository, accountRepo storage.AccountRepository) MatchService {
	return &matchService{matchRepo: matchRepo, accountRepo: accountRepo}
}

// ListMatches retrieves the user's matches and enriches each with the
// other member's public info, fetched in one batched query per page.
func (s *matchService) ListMatches(ctx context.Context, userID uint, limit, offset int) ([]*models.MatchWithMember, error) {
	matches, err := s.matchRepo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for user %d: %w", userID, err)
	}

	memberIDs := make([]uint, 0, len(matches))
	for _, m := range matches {
		memberIDs = append(memberIDs, m.OtherMember(userID))
	}
	infos, err := s.accountRepo.GetMultipleBasicInfoByIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load member info for user %d's matches: %w", userID, err)
	}
	infoByID := make(map[uint]*models.AccountBasicInfo, len(infos))
	for _, info := range infos {
		infoByID[info.ID] = info
	}

	result := make([]*models.MatchWithMember, 0, len(matches))
	for _, m := range matches {
		member, ok := infoByID[m.OtherMember(userID)]
		if !ok {
			// A deleted counterpart should not hide the rest of the list.
			log.Printf("No member info for match %s, skipping.", m.PairKey)
			continue
		}
		result = append(result, &models.MatchWithMember{Match: *m, Member: member})
	}
	return result, nil
}

// GetMatch fetches a single match and enforces membership.
func (s *matchService) GetMatch(ctx context.Context, userID uint, pairKey string) (*models.Match, error) {
	match, err := s.matchRepo.GetByPairKey(ctx, pairKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", pairKey, err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if !match.Contains(userID) {
		return nil, ErrNotMatchMember
	}
	return match, nil
}

// UpdatePreview forwards the preview mutation to the registry.
func (s *matchService) UpdatePreview(ctx context.Context, pairKey string, preview string, at time.Time) error {
	err := s.matchRepo.UpdatePreview(ctx, pairKey, preview, at)
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to update preview for match %s: %w", pairKey, err)
	}
	return nil
}
