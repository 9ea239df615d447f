package models

import (
	"time"
)

type ThreadRole string

const (
	ThreadRoleHost   ThreadRole = "host"
	ThreadRoleRenter ThreadRole = "renter"
)

// Thread is a two-party conversation tied to exactly one booking. The primary
// key is the booking id, which is what makes provisioning idempotent.
type Thread struct {
	BookingID uint      `json:"booking_id" gorm:"primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CreatedBy uint      `json:"created_by" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Denormalized snapshot of the newest message for inbox list views.
	LastMessageText     *string    `json:"last_message_text"`
	LastMessageSenderID *uint      `json:"last_message_sender_id"`
	LastMessageAt       *time.Time `json:"last_message_at"`

	// Relationships
	Members []ThreadMember `json:"members,omitempty" gorm:"foreignKey:ThreadID"`
}

// ThreadMember is one of the two participants of a thread, carrying the
// display name resolved at provisioning time and the user's read marker.
type ThreadMember struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	ThreadID    uint       `json:"thread_id" gorm:"not null;uniqueIndex:idx_thread_user"`
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_thread_user"`
	Role        ThreadRole `json:"role" gorm:"type:varchar(10);not null"`
	DisplayName string     `json:"display_name" gorm:"size:255;not null"`
	LastReadAt  *time.Time `json:"last_read_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the Thread model
func (Thread) TableName() string {
	return "threads"
}

// TableName specifies the table name for the ThreadMember model
func (ThreadMember) TableName() string {
	return "thread_members"
}

// MemberFor returns the member row for the given user, or nil.
func (t *Thread) MemberFor(userID uint) *ThreadMember {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			return &t.Members[i]
		}
	}
	return nil
}

// OtherMember returns the member that is not the given user, or nil.
func (t *Thread) OtherMember(userID uint) *ThreadMember {
	for i := range t.Members {
		if t.Members[i].UserID != userID {
			return &t.Members[i]
		}
	}
	return nil
}
