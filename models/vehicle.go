package models

import (
	"time"

	"github.com/lib/pq"
)

type VehicleType string

const (
	VehicleTypeBoat   VehicleType = "boat"
	VehicleTypeCamper VehicleType = "camper"
	VehicleTypeATV    VehicleType = "atv"
	VehicleTypeJetSki VehicleType = "jetski"
	VehicleTypeOther  VehicleType = "other"
)

type Vehicle struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	OwnerID     uint           `json:"owner_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Type        VehicleType    `json:"type" gorm:"type:varchar(20);default:'other'"`
	Description string         `json:"description" gorm:"size:2000"`
	NightlyRate float64        `json:"nightly_rate" gorm:"type:decimal(10,2);not null"`
	Seats       int            `json:"seats" gorm:"default:1"`
	City        string         `json:"city" gorm:"size:255"`
	Latitude    *float64       `json:"latitude"`
	Longitude   *float64       `json:"longitude"`
	Photos      pq.StringArray `json:"photos" gorm:"type:text[]"`
	Features    pq.StringArray `json:"features" gorm:"type:text[]"`
	IsListed    bool           `json:"is_listed" gorm:"default:true"`
	IsVerified  bool           `json:"is_verified" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Owner         User           `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	BlockedRanges []BlockedRange `json:"blocked_ranges,omitempty" gorm:"foreignKey:VehicleID"`
}

// BlockedRange is a host-declared availability override: the vehicle cannot be
// booked for any dates inside [start, end).
type BlockedRange struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	VehicleID uint      `json:"vehicle_id" gorm:"not null;index"`
	Start     time.Time `json:"start" gorm:"not null"`
	End       time.Time `json:"end" gorm:"not null"`
	Reason    string    `json:"reason" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the Vehicle model
func (Vehicle) TableName() string {
	return "vehicles"
}

// TableName specifies the table name for the BlockedRange model
func (BlockedRange) TableName() string {
	return "vehicle_blocked_ranges"
}

// PrimaryPhoto returns the first photo URL or an empty string.
func (v *Vehicle) PrimaryPhoto() string {
	if len(v.Photos) > 0 {
		return v.Photos[0]
	}
	return ""
}
