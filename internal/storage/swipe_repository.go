package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"match-go/internal/models"
)

// SwipeRepository defines the interface for swipe ledger operations.
type SwipeRepository interface {
	// Upsert writes the decision for (actor, target). A repeated swipe on
	// the same pair overwrites direction and timestamp in place; it never
	// creates a second row.
	Upsert(ctx context.Context, swipe *models.Swipe) error

	// Get returns the swipe for the ordered pair, or nil when the actor
	// has not decided on the target yet. Reads go through the primary
	// connection so a reciprocity check always sees the freshest write.
	Get(ctx context.Context, actorID, targetID uint) (*models.Swipe, error)

	// DeleteAllByActor removes every swipe the actor recorded and returns
	// how many rows were deleted. Swipes where the actor is the target
	// are untouched.
	DeleteAllByActor(ctx context.Context, actorID uint) (int64, error)
}

// gormSwipeRepository implements SwipeRepository using GORM.
type gormSwipeRepository struct {
	db *gorm.DB
}

// NewGormSwipeRepository creates a new GORM-based SwipeRepository.
// Pass a transaction handle to scope the repository to that transaction.
func NewGormSwipeRepository(db *gorm.DB) SwipeRepository {
	return &gormSwipeRepository{db: db}
}

// Upsert inserts the swipe or, on the (actor_id, target_id) conflict,
// overwrites the existing row's direction and timestamp.
func (r *gormSwipeRepository) Upsert(ctx context.Context, swipe *models.Swipe) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"direction", "swiped_at"}),
	}).Create(swipe).Error
}

// Get performs the point lookup for one ordered pair.
func (r *gormSwipeRepository) Get(ctx context.Context, actorID, targetID uint) (*models.Swipe, error) {
	var swipe models.Swipe
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&swipe).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil // absence is not an error for this lookup
		}
		return nil, err
	}
	return &swipe, nil
}

// DeleteAllByActor bulk-deletes the actor's ledger entries.
func (r *gormSwipeRepository) DeleteAllByActor(ctx context.Context, actorID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Delete(&models.Swipe{})
	return res.RowsAffected, res.Error
}
