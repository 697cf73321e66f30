package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"match-go/internal/models"
)

// AccountRepository defines the interface for account data operations.
//
// Quota and boost mutations are expressed as guarded field-level updates:
// the WHERE clause carries the precondition and the returned bool reports
// whether the row was actually changed. That keeps concurrent writers to
// the same account row from losing updates without holding row locks
// across round-trips.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetBasicInfoByID(ctx context.Context, id uint) (*models.AccountBasicInfo, error)
	GetMultipleBasicInfoByIDs(ctx context.Context, ids []uint) ([]*models.AccountBasicInfo, error)

	// ConsumeQuota increments daily_count by one, resetting it to 1 when
	// last_swipe_date differs from today. When enforceLimit is true the
	// increment only succeeds while daily_count < limit. Returns whether
	// a unit was consumed; (false, nil) means the guard rejected it.
	ConsumeQuota(ctx context.Context, userID uint, today string, limit int, enforceLimit bool) (bool, error)

	// SetBoostUntil sets boost_until only when no boost is currently
	// active (boost_until is NULL or in the past). Returns whether the
	// row was updated.
	SetBoostUntil(ctx context.Context, userID uint, now, expiresAt time.Time) (bool, error)
}

// gormAccountRepository implements AccountRepository using GORM.
type gormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GORM-based AccountRepository.
// Pass a transaction handle to scope the repository to that transaction.
func NewGormAccountRepository(db *gorm.DB) AccountRepository {
	return &gormAccountRepository{db: db}
}

// Create creates a new account record in the database.
func (r *gormAccountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID retrieves an account by its ID.
func (r *gormAccountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		return nil, err // includes gorm.ErrRecordNotFound
	}
	return &account, nil
}

// GetByUsername retrieves an account by its username.
func (r *gormAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail retrieves an account by its email.
func (r *gormAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetBasicInfoByID retrieves minimal public account info by ID.
func (r *gormAccountRepository) GetBasicInfoByID(ctx context.Context, id uint) (*models.AccountBasicInfo, error) {
	var basicInfo models.AccountBasicInfo
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("id", "username", "nickname", "avatar_url").
		Where("id = ?", id).
		First(&basicInfo).Error
	if err != nil {
		return nil, err
	}
	return &basicInfo, nil
}

// GetMultipleBasicInfoByIDs retrieves minimal public info for a list of IDs.
func (r *gormAccountRepository) GetMultipleBasicInfoByIDs(ctx context.Context, ids []uint) ([]*models.AccountBasicInfo, error) {
	var basicInfos []*models.AccountBasicInfo
	if len(ids) == 0 {
		return basicInfos, nil
	}

	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("id", "username", "nickname", "avatar_url").
		Where("id IN ?", ids).
		Find(&basicInfos).Error
	if err != nil {
		return nil, err
	}
	return basicInfos, nil
}

// ConsumeQuota performs the guarded daily-count increment.
//
// Two update attempts cover the two legal states. The first handles the
// common case of a same-day swipe; the second handles day rollover by
// resetting the count to 1 in one statement. When both miss, the
// same-day increment is retried once: a concurrent request may have
// committed the rollover between the two updates (under READ COMMITTED
// the second update re-evaluates its predicate against the committed
// row after the lock wait and matches nothing), in which case the row
// now carries today's date. If the retry misses too, either the account
// does not exist or the guard (the daily limit) rejected the increment —
// the caller distinguishes the two by reading the account.
func (r *gormAccountRepository) ConsumeQuota(ctx context.Context, userID uint, today string, limit int, enforceLimit bool) (bool, error) {
	sameDay := func() (bool, error) {
		q := r.db.WithContext(ctx).Model(&models.Account{}).
			Where("id = ? AND last_swipe_date = ?", userID, today)
		if enforceLimit {
			q = q.Where("daily_count < ?", limit)
		}
		res := q.Update("daily_count", gorm.Expr("daily_count + 1"))
		if res.Error != nil {
			return false, res.Error
		}
		return res.RowsAffected > 0, nil
	}

	consumed, err := sameDay()
	if err != nil || consumed {
		return consumed, err
	}

	// Day rollover: whatever the old count was, today starts at 1.
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND last_swipe_date <> ?", userID, today).
		Updates(map[string]interface{}{
			"daily_count":     1,
			"last_swipe_date": today,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Lost the rollover race to a concurrent request; the row is on
	// today's date now, so the same-day path applies.
	return sameDay()
}

// SetBoostUntil performs the guarded boost activation update.
func (r *gormAccountRepository) SetBoostUntil(ctx context.Context, userID uint, now, expiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND (boost_until IS NULL OR boost_until <= ?)", userID, now).
		Update("boost_until", expiresAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsNotFound reports whether err is the record-not-found error, so
// services do not need to import gorm for the common check.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
