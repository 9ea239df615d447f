package models

import (
	"time"
)

// Favorite marks a vehicle saved by a user. Adding twice is a no-op.
type Favorite struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_vehicle"`
	VehicleID uint      `json:"vehicle_id" gorm:"not null;uniqueIndex:idx_user_vehicle"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Relationships
	Vehicle Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

// TableName specifies the table name for the Favorite model
func (Favorite) TableName() string {
	return "favorites"
}
