package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vehicle-rental-server/models"
	"vehicle-rental-server/services"
)

// ThreadRepository persists threads, members and messages.
type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

var (
	_ services.ThreadStore  = (*ThreadRepository)(nil)
	_ services.MessageStore = (*ThreadRepository)(nil)
)

func (r *ThreadRepository) ByID(ctx context.Context, bookingID uint) (*models.Thread, error) {
	var thread models.Thread
	err := r.db.WithContext(ctx).
		Preload("Members").
		First(&thread, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *ThreadRepository) ListForUser(ctx context.Context, userID uint) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.WithContext(ctx).
		Preload("Members").
		Joins("JOIN thread_members ON thread_members.thread_id = threads.booking_id").
		Where("thread_members.user_id = ?", userID).
		Find(&threads).Error
	return threads, err
}

// CreateIfAbsent inserts the thread and its members in one transaction. The
// insert is a no-op when a thread with the same booking id already exists;
// the bool reports whether this call created it.
func (r *ThreadRepository) CreateIfAbsent(ctx context.Context, thread *models.Thread, members []models.ThreadMember) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(thread)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Create(&members).Error
	})
	return created, err
}

func (r *ThreadRepository) UpdateLastMessage(ctx context.Context, threadID uint, text string, senderID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("booking_id = ?", threadID).
		Updates(map[string]interface{}{
			"last_message_text":      text,
			"last_message_sender_id": senderID,
			"last_message_at":        at,
		}).Error
}

func (r *ThreadRepository) MarkRead(ctx context.Context, threadID, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ThreadMember{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Update("last_read_at", at).Error
}

func (r *ThreadRepository) Append(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *ThreadRepository) ListForThread(ctx context.Context, threadID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}
