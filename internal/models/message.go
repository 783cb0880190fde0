package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxMessageLength is the direct-message content limit.
const MaxMessageLength = 1000

// Message represents a direct message between two users.
type Message struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	SenderID    string         `json:"-" gorm:"column:sender_id;index"`
	Sender      Author         `json:"sender" gorm:"-"`
	RecipientID string         `json:"recipientId" gorm:"column:recipient_id;index"`
	Content     string         `json:"content" gorm:"not null"`
	Read        bool           `json:"read" gorm:"index"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"-"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Message Model
func (Message) TableName() string {
	return "messages"
}
