package models

import "time"

// Points record types written by the ledger.
const (
	PointsTypeNormal    = "normal"
	PointsTypeMakeup    = "makeup"
	PointsTypeChallenge = "challenge"
	PointsTypeSystem    = "system"
)

// Challenge lifecycle states.
const (
	ChallengeUpcoming = "upcoming"
	ChallengeOngoing  = "ongoing"
	ChallengeEnded    = "ended"
)

// PointsRecord is an append-only ledger entry. Amount is signed; rows are
// never updated or deleted.
type PointsRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Reason    string    `gorm:"size:255" json:"reason"`
	RelatedID uint      `json:"related_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Medal is a catalog entry granted when its condition key is first satisfied.
type Medal struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Icon        string    `gorm:"size:255" json:"icon"`
	Rarity      string    `gorm:"size:16;default:'common'" json:"rarity"`
	Condition   string    `gorm:"size:64;index;not null" json:"condition"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserMedal joins users to earned medals. The unique index makes awards
// idempotent even under concurrent evaluation of the same condition.
type UserMedal struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:uni_user_medal,priority:1" json:"user_id"`
	MedalID  uint      `gorm:"not null;uniqueIndex:uni_user_medal,priority:2" json:"medal_id"`
	EarnedAt time.Time `json:"earned_at"`
	Medal    *Medal    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"medal,omitempty"`
}

// Challenge is a time-boxed group activity. Participants counts joins; there
// is no leave operation and repeated joins are not deduplicated.
type Challenge struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:128;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Status       string    `gorm:"size:16;index;default:'upcoming'" json:"status"`
	Participants int       `gorm:"default:0" json:"participants"`
	RewardPoints int       `gorm:"default:0" json:"reward_points"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	CreatedAt    time.Time `json:"created_at"`
}
