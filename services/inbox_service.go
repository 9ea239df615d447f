package services

import (
	"context"
	"sort"
	"time"

	"vehicle-rental-server/models"
)

// BookingDirectory is the slice of booking lookups the inbox needs to attach
// trip context to each thread.
type BookingDirectory interface {
	ForRenter(ctx context.Context, renterID uint) ([]models.Booking, error)
	ForHost(ctx context.Context, hostID uint) ([]models.Booking, error)
}

// InboxThread is one row of a user's inbox: the thread plus its unread flag
// and the booking it belongs to, when one could be joined.
type InboxThread struct {
	Thread  models.Thread   `json:"thread"`
	Booking *models.Booking `json:"booking,omitempty"`
	Unread  bool            `json:"unread"`
}

// InboxView is the aggregated inbox for one user.
type InboxView struct {
	Threads     []InboxThread `json:"threads"`
	UnreadCount int           `json:"unread_count"`
}

// InboxService assembles the per-user conversation list with unread state and
// booking context.
type InboxService struct {
	threads  ThreadStore
	bookings BookingDirectory
}

func NewInboxService(threads ThreadStore, bookings BookingDirectory) *InboxService {
	return &InboxService{threads: threads, bookings: bookings}
}

// Inbox returns the user's threads, newest activity first. A thread is unread
// when its last message was sent by the other member and is newer than the
// user's read marker. Threads whose booking the user rents win the join over
// threads they host with the same id.
func (s *InboxService) Inbox(ctx context.Context, userID uint) (*InboxView, error) {
	if userID == 0 {
		return nil, ErrNotSignedIn
	}

	threads, err := s.threads.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	asRenter, err := s.bookings.ForRenter(ctx, userID)
	if err != nil {
		return nil, err
	}
	asHost, err := s.bookings.ForHost(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Host bookings first so a renter-scoped booking with the same id
	// overwrites it.
	byID := make(map[uint]*models.Booking, len(asRenter)+len(asHost))
	for i := range asHost {
		byID[asHost[i].ID] = &asHost[i]
	}
	for i := range asRenter {
		byID[asRenter[i].ID] = &asRenter[i]
	}

	return buildInbox(threads, byID, userID), nil
}

// UnreadCount returns only the number of unread threads, for badge polling.
func (s *InboxService) UnreadCount(ctx context.Context, userID uint) (int, error) {
	view, err := s.Inbox(ctx, userID)
	if err != nil {
		return 0, err
	}
	return view.UnreadCount, nil
}

func buildInbox(threads []models.Thread, bookings map[uint]*models.Booking, userID uint) *InboxView {
	rows := make([]InboxThread, 0, len(threads))
	unread := 0
	for i := range threads {
		t := threads[i]
		row := InboxThread{
			Thread:  t,
			Booking: bookings[t.BookingID],
			Unread:  threadUnread(&t, userID),
		}
		if row.Unread {
			unread++
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return activityTime(&rows[i].Thread).After(activityTime(&rows[j].Thread))
	})

	return &InboxView{Threads: rows, UnreadCount: unread}
}

// activityTime is the thread's sort key: last message time when one exists,
// thread creation time otherwise.
func activityTime(t *models.Thread) time.Time {
	if t.LastMessageAt != nil {
		return *t.LastMessageAt
	}
	return t.CreatedAt
}

func threadUnread(t *models.Thread, userID uint) bool {
	if t.LastMessageAt == nil || t.LastMessageSenderID == nil {
		return false
	}
	if *t.LastMessageSenderID == userID {
		return false
	}
	member := t.MemberFor(userID)
	if member == nil {
		return false
	}
	if member.LastReadAt == nil {
		return true
	}
	return t.LastMessageAt.After(*member.LastReadAt)
}
