package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxPostLength is the content limit enforced at the API boundary.
const MaxPostLength = 500

// EditWindow is how long after creation a post may still be edited.
const EditWindow = 5 * time.Minute

// Post represents a feed post. A post with a ParentID is a reply; threading
// is one level deep (replies to replies are not supported).
type Post struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	AuthorID  string         `json:"-" gorm:"column:author_id;index"`
	Author    Author         `json:"author" gorm:"-"`
	Content   string         `json:"content" gorm:"not null"`
	ParentID  string         `json:"parentId,omitempty" gorm:"column:parent_id;index"`
	EditedAt  *time.Time     `json:"editedAt,omitempty" gorm:"column:edited_at"`
	Replies   []Post         `json:"replies,omitempty" gorm:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Author is the public slice of a post author embedded in responses.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
}

// TableName specifies the table name for Post Model
func (Post) TableName() string {
	return "posts"
}

// IsReply reports whether the post is a threaded reply.
func (p *Post) IsReply() bool {
	return p.ParentID != ""
}

// Editable reports whether the post is still inside its edit window.
func (p *Post) Editable(now time.Time) bool {
	return now.Sub(p.CreatedAt) <= EditWindow
}
