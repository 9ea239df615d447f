package models

import (
	"strings"
	"time"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	Name         string    `json:"name" gorm:"size:255"`
	DisplayName  string    `json:"display_name" gorm:"size:255"`
	Phone        string    `json:"phone" gorm:"size:20"`
	About        string    `json:"about" gorm:"size:1000"`
	PhotoURL     *string   `json:"photo_url" gorm:"size:500"`
	IsHost       bool      `json:"is_host" gorm:"default:false"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Vehicles []Vehicle `json:"vehicles,omitempty" gorm:"foreignKey:OwnerID"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// SafeName resolves the name shown to the other party in a thread, falling
// back through profile name, display name and email before the role default.
func (u *User) SafeName(fallback string) string {
	if u == nil {
		return fallback
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return fallback
}
