package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vehicle-rental-server/models"
	"vehicle-rental-server/services"
)

// BookingRepository persists bookings in Postgres through GORM.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

var _ services.BookingStore = (*BookingRepository)(nil)

func (r *BookingRepository) ByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Preload("Host").
		Preload("Renter").
		First(&booking, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) ForRenter(ctx context.Context, renterID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Preload("Host").
		Where("renter_id = ?", renterID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) ForHost(ctx context.Context, hostID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Preload("Renter").
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) ActiveForVehicle(ctx context.Context, vehicleID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND status IN ?", vehicleID, models.ActiveBookingStatuses).
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) BlockedRangesForVehicle(ctx context.Context, vehicleID uint) ([]models.BlockedRange, error) {
	var ranges []models.BlockedRange
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Find(&ranges).Error
	return ranges, err
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

// WithVehicleLock runs fn inside a transaction that holds a row lock on the
// vehicle. Concurrent booking attempts for the same vehicle queue behind the
// lock, so the conflict check and the insert are atomic.
func (r *BookingRepository) WithVehicleLock(ctx context.Context, vehicleID uint, fn func(tx services.BookingTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle models.Vehicle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&vehicle, vehicleID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return services.ErrVehicleNotFound
		}
		if err != nil {
			return err
		}
		return fn(&BookingRepository{db: tx})
	})
}
