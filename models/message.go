package models

import (
	"time"
)

// Message is append-only and ordered by creation time ascending within its
// thread.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ThreadID  uint      `json:"thread_id" gorm:"not null;index"`
	SenderID  uint      `json:"sender_id" gorm:"not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	Type      string    `json:"type" gorm:"type:varchar(20);default:'text'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
