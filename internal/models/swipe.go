package models

import "time"

// Direction is the decision a user records about a candidate.
// It is a closed set; anything else is rejected at the boundary.
type Direction string

const (
	DirectionLike Direction = "like"
	DirectionPass Direction = "pass"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionLike || d == DirectionPass
}

// Swipe is the ledger entry for one directional decision.
//
// The composite primary key (ActorID, TargetID) guarantees a single row per
// ordered pair: re-swiping overwrites direction and timestamp rather than
// inserting a duplicate. The (target_id, direction) index serves the reverse
// reciprocity lookup without scanning the actor's rows.
type Swipe struct {
	ActorID   uint      `gorm:"primaryKey;autoIncrement:false" json:"actorId"`
	TargetID  uint      `gorm:"primaryKey;autoIncrement:false;index:idx_swipes_target_direction,priority:1" json:"targetId"`
	Direction Direction `gorm:"type:varchar(10);not null;index:idx_swipes_target_direction,priority:2" json:"direction"`
	SwipedAt  time.Time `gorm:"not null" json:"swipedAt"`
}

// TableName specifies the table name for the Swipe model.
func (Swipe) TableName() string {
	return "swipes"
}
