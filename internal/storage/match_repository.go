package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"match-go/internal/models"
)

// MatchRepository defines the interface for match registry operations.
type MatchRepository interface {
	// GetByPairKey returns the match for the canonical key, or nil when
	// no such match exists.
	GetByPairKey(ctx context.Context, pairKey string) (*models.Match, error)

	// GetOrCreate attempts a create-if-absent write of the match at its
	// canonical key. When the unique index rejects the insert because the
	// other party's request won the race, the existing row is loaded into
	// match instead. The returned bool reports whether this call created
	// the record.
	GetOrCreate(ctx context.Context, match *models.Match) (bool, error)

	// ListForUser returns the user's matches, newest first.
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Match, error)

	// UpdatePreview sets the last-message preview fields on an existing
	// match. It only ever mutates; a missing match is
	// gorm.ErrRecordNotFound, never an implicit create.
	UpdatePreview(ctx context.Context, pairKey string, preview string, at time.Time) error
}

// gormMatchRepository implements MatchRepository using GORM.
type gormMatchRepository struct {
	db *gorm.DB
}

// NewGormMatchRepository creates a new GORM-based MatchRepository.
func NewGormMatchRepository(db *gorm.DB) MatchRepository {
	return &gormMatchRepository{db: db}
}

// GetByPairKey looks up a match by its canonical key.
func (r *gormMatchRepository) GetByPairKey(ctx context.Context, pairKey string) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).Where("pair_key = ?", pairKey).First(&match).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &match, nil
}

// GetOrCreate resolves the two-writer race on match creation. Both
// parties compute the identical canonical key, so the unique index on
// pair_key lets exactly one insert through; the loser fetches the row
// the winner created and reports success all the same.
func (r *gormMatchRepository) GetOrCreate(ctx context.Context, match *models.Match) (bool, error) {
	match.EnsureCanonicalOrder()

	err := r.db.WithContext(ctx).Create(match).Error
	if err == nil {
		return true, nil
	}

	existing, getErr := r.GetByPairKey(ctx, match.PairKey)
	if getErr != nil {
		return false, getErr
	}
	if existing != nil {
		*match = *existing
		return false, nil
	}
	// The insert failed for a reason other than losing the race.
	return false, err
}

// ListForUser returns matches the user is a member of, newest first.
func (r *gormMatchRepository) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Match, error) {
	var matches []*models.Match
	query := r.db.WithContext(ctx).
		Where("user_id1 = ? OR user_id2 = ?", userID, userID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&matches).Error
	return matches, err
}

// UpdatePreview mutates only the preview fields of an existing match.
func (r *gormMatchRepository) UpdatePreview(ctx context.Context, pairKey string, preview string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Match{}).
		Where("pair_key = ?", pairKey).
		Updates(map[string]interface{}{
			"last_message_preview": preview,
			"last_message_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
