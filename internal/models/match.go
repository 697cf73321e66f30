package models

import (
	"fmt"
	"time"
)

// Match represents a mutual like between two users.
// To keep the record unique per unordered pair, UserID1 is always the
// smaller ID and PairKey is derived from the sorted pair, so both sides
// of a reciprocal like compute the same key.
type Match struct {
	BaseModel
	PairKey string `gorm:"type:varchar(50);uniqueIndex;not null" json:"pairKey"`
	UserID1 uint   `gorm:"not null;index" json:"userId1"`
	UserID2 uint   `gorm:"not null;index" json:"userId2"`

	// Conversation preview maintained by the chat collaborator.
	LastMessagePreview string     `gorm:"type:varchar(255)" json:"lastMessagePreview,omitempty"`
	LastMessageAt      *time.Time `json:"lastMessageAt,omitempty"`
}

// TableName specifies the table name for the Match model.
func (Match) TableName() string {
	return "matches"
}

// EnsureCanonicalOrder sets UserID1 to the smaller ID and UserID2 to the
// larger ID, then derives PairKey. Call before creating a Match record.
func (m *Match) EnsureCanonicalOrder() {
	if m.UserID1 > m.UserID2 {
		m.UserID1, m.UserID2 = m.UserID2, m.UserID1
	}
	m.PairKey = PairKey(m.UserID1, m.UserID2)
}

// Contains reports whether the given user is one of the two members.
func (m *Match) Contains(userID uint) bool {
	return m.UserID1 == userID || m.UserID2 == userID
}

// OtherMember returns the member that is not userID, or 0 when userID is
// not part of the match.
func (m *Match) OtherMember(userID uint) uint {
	switch userID {
	case m.UserID1:
		return m.UserID2
	case m.UserID2:
		return m.UserID1
	default:
		return 0
	}
}

// PairKey derives the canonical pair-order-independent key for two users.
// Both parties to a match compute the identical key, which is what makes
// match creation collapse to a single row under concurrency.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// MatchWithMember is a DTO pairing a match with the other member's public
// info, used for API responses.
type MatchWithMember struct {
	Match
	Member *AccountBasicInfo `json:"member"`
}
