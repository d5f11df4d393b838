package models

import "time"

// Team is a small check-in group led by the user who created it.
type Team struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	UserID     uint         `gorm:"index;not null" json:"user_id"` // captain
	Name       string       `gorm:"size:64;not null" json:"name"`
	Intro      string       `gorm:"size:255" json:"intro"`
	MaxMembers int          `gorm:"default:10" json:"max_members"`
	Status     string       `gorm:"size:16;default:'active'" json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	Captain    *User        `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"captain,omitempty"`
	Members    []TeamMember `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"members,omitempty"`
}

// TeamMember joins users to teams.
type TeamMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	TeamID   uint      `gorm:"index;not null" json:"team_id"`
	UserID   uint      `gorm:"index;not null" json:"user_id"`
	Role     string    `gorm:"size:16;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
	User     *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
}

// Post is a check-in circle update. Content is sanitized before storage.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Images    string    `gorm:"type:text" json:"images"` // JSON array of image URLs
	Tags      string    `gorm:"size:255" json:"tags"`
	LikeCount int       `gorm:"default:0" json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// Comment belongs to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"size:500;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
}

// Like marks a user having liked a post; deleting the row un-likes.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:uni_post_user,priority:1" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uni_post_user,priority:2" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
