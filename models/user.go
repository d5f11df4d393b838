package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an app user. The primary identity is an external provider
// subject (WeChat openid or an OAuth provider id); local accounts store a
// bcrypt hash only. Points are mutated exclusively through the incentive
// ledger so the balance always matches the signed sum of PointsRecords.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Provider     string         `gorm:"size:32;not null;uniqueIndex:uni_provider_subject,priority:1" json:"provider"`
	ProviderID   string         `gorm:"size:255;not null;uniqueIndex:uni_provider_subject,priority:2" json:"-"`
	Username     string         `gorm:"size:64" json:"username"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Nickname     string         `gorm:"size:64;not null" json:"nickname"`
	Avatar       string         `gorm:"size:512" json:"avatar"`
	Signature    string         `gorm:"size:255" json:"signature"`
	Points       int            `gorm:"default:0" json:"points"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
