package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "requested"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusSimulatedPaid PaymentStatus = "simulated_paid"
	PaymentStatusVoid          PaymentStatus = "void"
)

type Booking struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	VehicleID     uint          `json:"vehicle_id" gorm:"not null;index"`
	HostID        uint          `json:"host_id" gorm:"not null;index"`
	RenterID      uint          `json:"renter_id" gorm:"not null;index"`
	Start         time.Time     `json:"start" gorm:"not null"`
	End           time.Time     `json:"end" gorm:"not null"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);default:'requested';check:status IN ('requested','approved','active','completed','canceled')"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'unpaid';check:payment_status IN ('unpaid','simulated_paid','void')"`
	NightlyRate   float64       `json:"nightly_rate" gorm:"type:decimal(10,2);not null"`
	Nights        int           `json:"nights" gorm:"not null"`
	QuotedTotal   float64       `json:"quoted_total" gorm:"type:decimal(10,2);not null"`
	Guests        int           `json:"guests" gorm:"default:1"`
	Note          *string       `json:"note" gorm:"size:1000"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt   *time.Time    `json:"completed_at"`
	CanceledAt    *time.Time    `json:"canceled_at"`

	// Relationships
	Vehicle Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
	Host    User    `json:"host,omitempty" gorm:"foreignKey:HostID"`
	Renter  User    `json:"renter,omitempty" gorm:"foreignKey:RenterID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// ActiveBookingStatuses are the statuses that hold a vehicle's dates and take
// part in conflict detection.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusRequested,
	BookingStatusApproved,
	BookingStatusActive,
}

// IsTerminal reports whether the booking can no longer change status.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCanceled
}
