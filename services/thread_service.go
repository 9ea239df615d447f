package services

import (
	"context"
	"log"
	"strings"
	"time"

	"vehicle-rental-server/models"
)

// ThreadStore owns thread and read-marker persistence. CreateIfAbsent must be
// atomic: concurrent provisioning calls for the same booking may not produce
// duplicate threads or corrupt member rows.
type ThreadStore interface {
	ByID(ctx context.Context, bookingID uint) (*models.Thread, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Thread, error)
	CreateIfAbsent(ctx context.Context, thread *models.Thread, members []models.ThreadMember) (bool, error)
	UpdateLastMessage(ctx context.Context, threadID uint, text string, senderID uint, at time.Time) error
	MarkRead(ctx context.Context, threadID, userID uint, at time.Time) error
}

// MessageStore owns the append-only message log of each thread.
type MessageStore interface {
	Append(ctx context.Context, message *models.Message) error
	ListForThread(ctx context.Context, threadID uint) ([]models.Message, error)
}

// ProfileDirectory resolves user profiles for display-name fallbacks.
type ProfileDirectory interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// EnsureThreadRequest carries everything needed to lazily provision the
// one thread a booking owns.
type EnsureThreadRequest struct {
	BookingID    uint
	VehicleTitle string
	HostID       uint
	RenterID     uint
	CreatedBy    uint
}

// ThreadService provisions booking threads and handles messaging within them.
type ThreadService struct {
	threads  ThreadStore
	messages MessageStore
	users    ProfileDirectory
}

func NewThreadService(threads ThreadStore, messages MessageStore, users ProfileDirectory) *ThreadService {
	return &ThreadService{
		threads:  threads,
		messages: messages,
		users:    users,
	}
}

// EnsureBookingThread creates the thread keyed by the booking id if it does
// not exist yet. It never overwrites an existing thread; calling it any
// number of times for the same booking yields exactly one thread.
func (s *ThreadService) EnsureBookingThread(ctx context.Context, req EnsureThreadRequest) error {
	if req.BookingID == 0 || req.HostID == 0 || req.RenterID == 0 {
		return nil
	}

	if existing, err := s.threads.ByID(ctx, req.BookingID); err == nil && existing != nil {
		return nil
	}

	name := strings.TrimSpace(req.VehicleTitle)
	if name == "" {
		name = "Trip chat"
	}
	createdBy := req.CreatedBy
	if createdBy == 0 {
		createdBy = req.RenterID
	}

	thread := &models.Thread{
		BookingID: req.BookingID,
		Name:      name,
		CreatedBy: createdBy,
	}
	members := []models.ThreadMember{
		{
			ThreadID:    req.BookingID,
			UserID:      req.RenterID,
			Role:        models.ThreadRoleRenter,
			DisplayName: s.resolveName(ctx, req.RenterID, "Guest"),
		},
		{
			ThreadID:    req.BookingID,
			UserID:      req.HostID,
			Role:        models.ThreadRoleHost,
			DisplayName: s.resolveName(ctx, req.HostID, "Host"),
		},
	}

	created, err := s.threads.CreateIfAbsent(ctx, thread, members)
	if err != nil {
		return err
	}
	if created {
		log.Printf("💬 Thread provisioned for booking %d (%s)", req.BookingID, name)
	}
	return nil
}

// SendMessage appends a text message and refreshes the thread's last-message
// snapshot. The sender must be a member of the thread.
func (s *ThreadService) SendMessage(ctx context.Context, threadID, senderID uint, text string) (*models.Message, error) {
	if senderID == 0 {
		return nil, ErrNotSignedIn
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	thread, err := s.memberThread(ctx, threadID, senderID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ThreadID: thread.BookingID,
		SenderID: senderID,
		Text:     trimmed,
		Type:     "text",
	}
	if err := s.messages.Append(ctx, message); err != nil {
		return nil, err
	}

	at := message.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := s.threads.UpdateLastMessage(ctx, thread.BookingID, trimmed, senderID, at); err != nil {
		log.Printf("⚠️ Failed to update last message snapshot for thread %d: %v", thread.BookingID, err)
	}
	return message, nil
}

// Messages returns the thread's messages ordered by creation time ascending.
func (s *ThreadService) Messages(ctx context.Context, threadID, userID uint) ([]models.Message, error) {
	if _, err := s.memberThread(ctx, threadID, userID); err != nil {
		return nil, err
	}
	return s.messages.ListForThread(ctx, threadID)
}

// MarkRead advances the user's last-read marker for the thread.
func (s *ThreadService) MarkRead(ctx context.Context, threadID, userID uint) error {
	if _, err := s.memberThread(ctx, threadID, userID); err != nil {
		return err
	}
	return s.threads.MarkRead(ctx, threadID, userID, time.Now())
}

// Thread returns a thread visible to the given member.
func (s *ThreadService) Thread(ctx context.Context, threadID, userID uint) (*models.Thread, error) {
	return s.memberThread(ctx, threadID, userID)
}

func (s *ThreadService) memberThread(ctx context.Context, threadID, userID uint) (*models.Thread, error) {
	thread, err := s.threads.ByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrThreadNotFound
	}
	if thread.MemberFor(userID) == nil {
		return nil, ErrThreadNotFound
	}
	return thread, nil
}

func (s *ThreadService) resolveName(ctx context.Context, userID uint, fallback string) string {
	if s.users == nil {
		return fallback
	}
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		log.Printf("⚠️ Profile lookup failed for user %d: %v", userID, err)
		return fallback
	}
	return user.SafeName(fallback)
}
