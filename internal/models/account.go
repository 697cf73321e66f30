package models

import "time"

// Account represents a registered user as seen by the swipe engine.
// Profile editing and tier changes belong to the account-management side;
// the engine only reads the tier and mutates the quota and boost fields,
// always as field-level updates, never whole-row saves.
type Account struct {
	BaseModel
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Email        string `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	Nickname     string `gorm:"type:varchar(100)" json:"nickname,omitempty"`
	AvatarURL    string `gorm:"type:varchar(255)" json:"avatarUrl,omitempty"`
	Bio          string `gorm:"type:text" json:"bio,omitempty"`

	// Tier identifies the subscription tier. The tier-to-capability
	// mapping (daily limit, boost entitlement) lives in configuration.
	Tier string `gorm:"type:varchar(30);not null;default:'free'" json:"tier"`

	// DailyCount is the number of swipes consumed on LastSwipeDate.
	// LastSwipeDate is stored as YYYY-MM-DD in the engine's configured
	// timezone so day rollover is decided server-side.
	DailyCount    int    `gorm:"not null;default:0" json:"dailyCount"`
	LastSwipeDate string `gorm:"type:varchar(10);not null;default:''" json:"lastSwipeDate"`

	// BoostUntil is nil when no boost is active.
	BoostUntil *time.Time `json:"boostUntil,omitempty"`
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// AccountBasicInfo holds minimal public information about an account,
// used when enriching match records for API responses.
type AccountBasicInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
