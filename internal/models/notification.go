package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationKind distinguishes what produced a notification.
type NotificationKind string

const (
	// NotificationReply is created when someone replies to your post.
	NotificationReply NotificationKind = "reply"
)

// Notification is a per-user inbox entry, persisted so clients that were
// offline when the realtime event fired still see it on the next page load.
type Notification struct {
	ID        string           `json:"id" gorm:"primaryKey"`
	UserID    string           `json:"-" gorm:"column:user_id;index"`
	FromID    string           `json:"-" gorm:"column:from_id"`
	From      Author           `json:"from" gorm:"-"`
	Kind      NotificationKind `json:"kind" gorm:"not null"`
	PostID    string           `json:"postId,omitempty" gorm:"column:post_id"`
	Read      bool             `json:"read" gorm:"index"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"-"`
	DeletedAt gorm.DeletedAt   `json:"-" gorm:"index"`
}

// TableName specifies the table name for Notification Model
func (Notification) TableName() string {
	return "notifications"
}
