package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-rental-server/models"
)

func seedThread(store *fakeThreadStore, bookingID, renterID, hostID uint, createdAt time.Time) *models.Thread {
	thread := &models.Thread{
		BookingID: bookingID,
		Name:      "Trip chat",
		CreatedBy: renterID,
		CreatedAt: createdAt,
		Members: []models.ThreadMember{
			{ThreadID: bookingID, UserID: renterID, Role: models.ThreadRoleRenter, DisplayName: "Guest"},
			{ThreadID: bookingID, UserID: hostID, Role: models.ThreadRoleHost, DisplayName: "Host"},
		},
	}
	store.threads[bookingID] = thread
	return thread
}

func setLastMessage(thread *models.Thread, senderID uint, at time.Time) {
	text := "hello"
	thread.LastMessageText = &text
	thread.LastMessageSenderID = &senderID
	thread.LastMessageAt = &at
}

func TestInboxOrdering(t *testing.T) {
	threads := newFakeThreadStore()
	bookings := newFakeBookingStore()
	svc := NewInboxService(threads, bookings)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Quiet thread, sorts by creation time.
	seedThread(threads, 1, 3, 2, base.Add(2*time.Hour))
	// Older thread with a fresh message outranks it.
	old := seedThread(threads, 2, 3, 5, base)
	setLastMessage(old, 5, base.Add(3*time.Hour))
	// Oldest activity sorts last.
	stale := seedThread(threads, 3, 3, 6, base.Add(-time.Hour))
	setLastMessage(stale, 3, base.Add(-30*time.Minute))

	view, err := svc.Inbox(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, view.Threads, 3)

	assert.Equal(t, uint(2), view.Threads[0].Thread.BookingID)
	assert.Equal(t, uint(1), view.Threads[1].Thread.BookingID)
	assert.Equal(t, uint(3), view.Threads[2].Thread.BookingID)
}

func TestInboxUnread(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unread when the other member wrote last and no read marker", func(t *testing.T) {
		threads := newFakeThreadStore()
		svc := NewInboxService(threads, newFakeBookingStore())

		thread := seedThread(threads, 1, 3, 2, base)
		setLastMessage(thread, 2, base.Add(time.Hour))

		view, err := svc.Inbox(context.Background(), 3)
		require.NoError(t, err)
		assert.True(t, view.Threads[0].Unread)
		assert.Equal(t, 1, view.UnreadCount)
	})

	t.Run("own messages never count as unread", func(t *testing.T) {
		threads := newFakeThreadStore()
		svc := NewInboxService(threads, newFakeBookingStore())

		thread := seedThread(threads, 1, 3, 2, base)
		setLastMessage(thread, 3, base.Add(time.Hour))

		view, err := svc.Inbox(context.Background(), 3)
		require.NoError(t, err)
		assert.False(t, view.Threads[0].Unread)
		assert.Zero(t, view.UnreadCount)
	})

	t.Run("read marker newer than the message clears unread", func(t *testing.T) {
		threads := newFakeThreadStore()
		svc := NewInboxService(threads, newFakeBookingStore())

		thread := seedThread(threads, 1, 3, 2, base)
		setLastMessage(thread, 2, base.Add(time.Hour))
		readAt := base.Add(2 * time.Hour)
		thread.MemberFor(3).LastReadAt = &readAt

		view, err := svc.Inbox(context.Background(), 3)
		require.NoError(t, err)
		assert.False(t, view.Threads[0].Unread)
	})

	t.Run("message newer than the read marker is unread again", func(t *testing.T) {
		threads := newFakeThreadStore()
		svc := NewInboxService(threads, newFakeBookingStore())

		thread := seedThread(threads, 1, 3, 2, base)
		readAt := base.Add(time.Hour)
		thread.MemberFor(3).LastReadAt = &readAt
		setLastMessage(thread, 2, base.Add(2*time.Hour))

		view, err := svc.Inbox(context.Background(), 3)
		require.NoError(t, err)
		assert.True(t, view.Threads[0].Unread)
	})

	t.Run("empty threads are never unread", func(t *testing.T) {
		threads := newFakeThreadStore()
		svc := NewInboxService(threads, newFakeBookingStore())

		seedThread(threads, 1, 3, 2, base)

		view, err := svc.Inbox(context.Background(), 3)
		require.NoError(t, err)
		assert.False(t, view.Threads[0].Unread)
	})
}

func TestInboxBookingJoin(t *testing.T) {
	threads := newFakeThreadStore()
	bookings := newFakeBookingStore()
	svc := NewInboxService(threads, bookings)

	// User 3 rents booking 1 and hosts booking 2.
	bookings.bookings[1] = &models.Booking{ID: 1, VehicleID: 7, HostID: 2, RenterID: 3, Status: models.BookingStatusApproved}
	bookings.bookings[2] = &models.Booking{ID: 2, VehicleID: 8, HostID: 3, RenterID: 9, Status: models.BookingStatusRequested}

	seedThread(threads, 1, 3, 2, time.Now())
	seedThread(threads, 2, 9, 3, time.Now())
	seedThread(threads, 4, 3, 5, time.Now()) // no matching booking

	view, err := svc.Inbox(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, view.Threads, 3)

	byID := make(map[uint]InboxThread)
	for _, row := range view.Threads {
		byID[row.Thread.BookingID] = row
	}

	require.NotNil(t, byID[1].Booking)
	assert.Equal(t, uint(3), byID[1].Booking.RenterID)
	require.NotNil(t, byID[2].Booking)
	assert.Equal(t, uint(3), byID[2].Booking.HostID)
	assert.Nil(t, byID[4].Booking)
}

func TestInboxRequiresIdentity(t *testing.T) {
	svc := NewInboxService(newFakeThreadStore(), newFakeBookingStore())
	_, err := svc.Inbox(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestUnreadCount(t *testing.T) {
	threads := newFakeThreadStore()
	svc := NewInboxService(threads, newFakeBookingStore())

	base := time.Now()
	a := seedThread(threads, 1, 3, 2, base)
	setLastMessage(a, 2, base.Add(time.Minute))
	b := seedThread(threads, 2, 3, 5, base)
	setLastMessage(b, 5, base.Add(time.Minute))
	c := seedThread(threads, 3, 3, 6, base)
	setLastMessage(c, 3, base.Add(time.Minute))

	count, err := svc.UnreadCount(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
