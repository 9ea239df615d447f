package repository

import (
	"context"

	"gorm.io/gorm"

	"vehicle-rental-server/models"
	"vehicle-rental-server/services"
)

// UserRepository resolves user profiles for the messaging layer.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ services.ProfileDirectory = (*UserRepository)(nil)

func (r *UserRepository) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
