package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxBioLength is the profile bio limit.
const MaxBioLength = 200

// User represents a user in the system
type User struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	Username   string         `json:"username" gorm:"unique;not null"`
	Email      string         `json:"-" gorm:"unique;not null"`
	Password   string         `json:"-" gorm:"not null"`
	Bio        string         `json:"bio"`
	LastActive time.Time      `json:"lastActive" gorm:"column:last_active"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"-"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// PublicProfile is the safe, outward-facing slice of a user record.
type PublicProfile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Bio        string    `json:"bio"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Username:   u.Username,
		Bio:        u.Bio,
		CreatedAt:  u.CreatedAt,
		LastActive: u.LastActive,
	}
}

// RelationKind distinguishes block from mute relationships.
type RelationKind string

const (
	RelationBlock RelationKind = "block"
	RelationMute  RelationKind = "mute"
)

// UserRelation records one user blocking or muting another. Blocks gate
// direct messages in both directions; blocks and mutes both filter the feed.
// Relation rows are removed outright rather than soft-deleted; a lingering
// tombstone would keep occupying idx_relation and block re-adding.
type UserRelation struct {
	UserID    string       `json:"userId" gorm:"column:user_id;index;uniqueIndex:idx_relation"`
	TargetID  string       `json:"targetId" gorm:"column:target_id;index;uniqueIndex:idx_relation"`
	Kind      RelationKind `json:"kind" gorm:"uniqueIndex:idx_relation"`
	CreatedAt time.Time    `json:"-"`
}

// TableName specifies the table name for UserRelation Model
func (UserRelation) TableName() string {
	return "user_relations"
}

// Bookmark marks a post saved by a user. Like relations, bookmarks are
// removed outright so the post can be bookmarked again.
type Bookmark struct {
	UserID    string    `json:"userId" gorm:"column:user_id;index;uniqueIndex:idx_bookmark"`
	PostID    string    `json:"postId" gorm:"column:post_id;uniqueIndex:idx_bookmark"`
	CreatedAt time.Time `json:"-"`
}

// TableName specifies the table name for Bookmark Model
func (Bookmark) TableName() string {
	return "bookmarks"
}
