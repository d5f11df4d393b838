package models

import "time"

// Check-in item types and cycles accepted by the API.
const (
	ItemTypeCount  = "count"
	ItemTypeTiming = "timing"
	ItemTypeProof  = "proof"

	CycleDaily  = "daily"
	CycleWeekly = "weekly"
	CycleCustom = "custom"

	RecordStatusNormal = "normal"
	RecordStatusMakeup = "makeup"
)

// CheckInItem is a habit a user checks in against. Items belong to exactly
// one user and are only visible to and editable by that user.
type CheckInItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Type      string    `gorm:"size:16;not null;default:'count'" json:"type"`
	Cycle     string    `gorm:"size:16;not null;default:'daily'" json:"cycle"`
	Icon      string    `gorm:"size:64" json:"icon"`
	Color     string    `gorm:"size:16" json:"color"`
	IsHidden  bool      `gorm:"default:false" json:"is_hidden"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckInRecord is one completion of an item on a calendar day. RecordDate is
// truncated to midnight; the composite unique index is the final arbiter of
// the one-record-per-(user,item,day) rule, concurrent submits included.
// Records are immutable once created.
type CheckInRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:uni_user_item_date,priority:1" json:"user_id"`
	ItemID     uint      `gorm:"not null;uniqueIndex:uni_user_item_date,priority:2" json:"item_id"`
	RecordDate time.Time `gorm:"not null;uniqueIndex:uni_user_item_date,priority:3" json:"record_date"`
	Status     string    `gorm:"size:16;not null;default:'normal'" json:"status"`
	Note       string    `gorm:"size:255" json:"note"`
	ProofURL   string    `gorm:"size:1024" json:"proof_url"`
	MakeupCost int       `gorm:"default:0" json:"makeup_cost"`
	CreatedAt  time.Time `json:"created_at"`
	Item       *CheckInItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"item,omitempty"`
}
