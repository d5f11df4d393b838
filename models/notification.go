package models

import "time"

// Notification is an in-app message for a single user. Delivery to device
// push channels is out of scope; rows here back the in-app inbox only.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	Content   string    `gorm:"size:500" json:"content"`
	RelatedID uint      `json:"related_id,omitempty"`
	IsRead    bool      `gorm:"index;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
