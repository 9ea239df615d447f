package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-rental-server/models"
)

type fakeBookingStore struct {
	bookings      map[uint]*models.Booking
	blockedRanges []models.BlockedRange
	nextID        uint
	lockCalls     int
	readErr       error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{
		bookings: make(map[uint]*models.Booking),
		nextID:   1,
	}
}

func (f *fakeBookingStore) ActiveForVehicle(ctx context.Context, vehicleID uint) ([]models.Booking, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []models.Booking
	for _, b := range f.bookings {
		if b.VehicleID != vehicleID {
			continue
		}
		for _, s := range models.ActiveBookingStatuses {
			if b.Status == s {
				out = append(out, *b)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeBookingStore) BlockedRangesForVehicle(ctx context.Context, vehicleID uint) ([]models.BlockedRange, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []models.BlockedRange
	for _, r := range f.blockedRanges {
		if r.VehicleID == vehicleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = f.nextID
	f.nextID++
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookingStore) Update(ctx context.Context, booking *models.Booking) error {
	if _, ok := f.bookings[booking.ID]; !ok {
		return ErrBookingNotFound
	}
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookingStore) ByID(ctx context.Context, id uint) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingStore) ForRenter(ctx context.Context, renterID uint) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.RenterID == renterID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ForHost(ctx context.Context, hostID uint) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.HostID == hostID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) WithVehicleLock(ctx context.Context, vehicleID uint, fn func(tx BookingTx) error) error {
	f.lockCalls++
	return fn(f)
}

type fakeProvisioner struct {
	calls []EnsureThreadRequest
	err   error
}

func (f *fakeProvisioner) EnsureBookingThread(ctx context.Context, req EnsureThreadRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func validRequest() RequestBookingInput {
	return RequestBookingInput{
		VehicleID:    7,
		VehicleTitle: "Lakeside Pontoon",
		HostID:       2,
		RenterID:     3,
		Start:        day("2024-06-01"),
		End:          day("2024-06-05"),
		NightlyRate:  120,
		Guests:       2,
	}
}

func TestNightsBetween(t *testing.T) {
	assert.Equal(t, 4, NightsBetween(day("2024-06-01"), day("2024-06-05")))
	assert.Equal(t, 1, NightsBetween(day("2024-06-01"), day("2024-06-02")))

	// Sub-day stays still bill one night.
	start := day("2024-06-01")
	assert.Equal(t, 1, NightsBetween(start, start.Add(6*time.Hour)))

	// Rounding, not truncation.
	assert.Equal(t, 2, NightsBetween(start, start.Add(40*time.Hour)))
}

func TestOverlaps(t *testing.T) {
	// Touching boundary: checkout day equals checkin day, no overlap.
	assert.False(t, Overlaps(day("2024-06-05"), day("2024-06-08"), day("2024-06-01"), day("2024-06-05")))
	assert.False(t, Overlaps(day("2024-06-01"), day("2024-06-05"), day("2024-06-05"), day("2024-06-08")))

	assert.True(t, Overlaps(day("2024-06-04"), day("2024-06-06"), day("2024-06-01"), day("2024-06-05")))
	assert.True(t, Overlaps(day("2024-06-01"), day("2024-06-10"), day("2024-06-04"), day("2024-06-05")))
	assert.True(t, Overlaps(day("2024-06-02"), day("2024-06-03"), day("2024-06-01"), day("2024-06-05")))
}

func TestRequestBooking(t *testing.T) {
	t.Run("creates a requested booking with computed totals", func(t *testing.T) {
		store := newFakeBookingStore()
		threads := &fakeProvisioner{}
		svc := NewBookingService(store, threads, true)

		booking, err := svc.RequestBooking(context.Background(), validRequest())
		require.NoError(t, err)

		assert.Equal(t, models.BookingStatusRequested, booking.Status)
		assert.Equal(t, models.PaymentStatusUnpaid, booking.PaymentStatus)
		assert.Equal(t, 4, booking.Nights)
		assert.Equal(t, 480.0, booking.QuotedTotal)
		assert.Equal(t, 1, store.lockCalls)

		require.Len(t, threads.calls, 1)
		assert.Equal(t, booking.ID, threads.calls[0].BookingID)
		assert.Equal(t, "Lakeside Pontoon", threads.calls[0].VehicleTitle)
	})

	t.Run("honors a quoted total override", func(t *testing.T) {
		store := newFakeBookingStore()
		svc := NewBookingService(store, &fakeProvisioner{}, true)

		in := validRequest()
		total := 399.0
		in.QuotedTotal = &total

		booking, err := svc.RequestBooking(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 399.0, booking.QuotedTotal)
	})

	t.Run("requires a signed-in renter", func(t *testing.T) {
		svc := NewBookingService(newFakeBookingStore(), &fakeProvisioner{}, true)

		in := validRequest()
		in.RenterID = 0
		_, err := svc.RequestBooking(context.Background(), in)
		assert.ErrorIs(t, err, ErrNotSignedIn)
	})

	t.Run("rejects inverted dates", func(t *testing.T) {
		svc := NewBookingService(newFakeBookingStore(), &fakeProvisioner{}, true)

		in := validRequest()
		in.Start, in.End = in.End, in.Start
		_, err := svc.RequestBooking(context.Background(), in)

		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("defaults guests to one", func(t *testing.T) {
		store := newFakeBookingStore()
		svc := NewBookingService(store, &fakeProvisioner{}, true)

		in := validRequest()
		in.Guests = 0
		booking, err := svc.RequestBooking(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 1, booking.Guests)
	})

	t.Run("allows back-to-back stays", func(t *testing.T) {
		store := newFakeBookingStore()
		svc := NewBookingService(store, &fakeProvisioner{}, true)

		first := validRequest()
		booking, err := svc.RequestBooking(context.Background(), first)
		require.NoError(t, err)
		booking.Status = models.BookingStatusApproved
		require.NoError(t, store.Update(context.Background(), booking))

		second := validRequest()
		second.RenterID = 9
		second.Start = day("2024-06-05")
		second.End = day("2024-06-08")
		_, err = svc.RequestBooking(context.Background(), second)
		assert.NoError(t, err)
	})

	t.Run("rejects overlapping stays", func(t *testing.T) {
		store := newFakeBookingStore()
		svc := NewBookingService(store, &fakeProvisioner{}, true)

		booking, err := svc.RequestBooking(context.Background(), validRequest())
		require.NoError(t, err)
		booking.Status = models.BookingStatusApproved
		require.NoError(t, store.Update(context.Background(), booking))

		second := validRequest()
		second.RenterID = 9
		second.Start = day("2024-06-04")
		second.End = day("2024-06-06")
		_, err = svc.RequestBooking(context.Background(), second)

		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, uint(7), conflictErr.VehicleID)
	})

	t.Run("canceled bookings do not hold dates", func(t *testing.T) {
		store := newFakeBookingStore()
		svc := NewBookingService(store, &fakeProvisioner{}, true)

		booking, err := svc.RequestBooking(context.Background(), validRequest())
		require.NoError(t, err)
		booking.Status = models.BookingStatusCanceled
		require.NoError(t, store.Update(context.Background(), booking))

		second := validRequest()
		second.RenterID = 9
		_, err = svc.RequestBooking(context.Background(), second)
		assert.NoError(t, err)
	})

	t.Run("host-blocked ranges reject bookings", func(t *testing.T) {
		store := newFakeBookingStore()
		store.blockedRanges = append(store.blockedRanges, models.BlockedRange{
			VehicleID: 7,
			Start:     day("2024-06-03"),
			End:       day("2024-06-04"),
		})
		svc := NewBookingService(store, &fakeProvisioner{}, true)

		_, err := svc.RequestBooking(context.Background(), validRequest())

		var conflictErr *ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})

	t.Run("fail-open lets the booking through when reads fail", func(t *testing.T) {
		store := newFakeBookingStore()
		store.readErr = errors.New("connection reset")
		svc := NewBookingService(store, &fakeProvisioner{}, true)

		_, err := svc.RequestBooking(context.Background(), validRequest())
		assert.NoError(t, err)
	})

	t.Run("fail-closed surfaces the store error", func(t *testing.T) {
		store := newFakeBookingStore()
		store.readErr = errors.New("connection reset")
		svc := NewBookingService(store, &fakeProvisioner{}, false)

		_, err := svc.RequestBooking(context.Background(), validRequest())

		var transientErr *TransientStoreError
		assert.ErrorAs(t, err, &transientErr)
	})

	t.Run("thread provisioning failures do not fail the booking", func(t *testing.T) {
		store := newFakeBookingStore()
		threads := &fakeProvisioner{err: errors.New("boom")}
		svc := NewBookingService(store, threads, true)

		booking, err := svc.RequestBooking(context.Background(), validRequest())
		require.NoError(t, err)
		assert.NotZero(t, booking.ID)
	})
}

func TestEditBooking(t *testing.T) {
	setup := func(t *testing.T) (*BookingService, *fakeBookingStore, *models.Booking) {
		store := newFakeBookingStore()
		svc := NewBookingService(store, &fakeProvisioner{}, true)
		booking, err := svc.RequestBooking(context.Background(), validRequest())
		require.NoError(t, err)
		return svc, store, booking
	}

	t.Run("excludes the booking itself from the conflict check", func(t *testing.T) {
		svc, _, booking := setup(t)

		// Shift within the original range; the only overlap is with itself.
		updated, err := svc.EditBooking(context.Background(), EditBookingInput{
			ID:          booking.ID,
			VehicleID:   7,
			ActorID:     3,
			Start:       day("2024-06-02"),
			End:         day("2024-06-06"),
			NightlyRate: 120,
			Guests:      2,
		})
		require.NoError(t, err)
		assert.Equal(t, day("2024-06-02"), updated.Start)
		assert.Equal(t, 4, updated.Nights)
	})

	t.Run("resets status to requested", func(t *testing.T) {
		svc, store, booking := setup(t)

		booking.Status = models.BookingStatusApproved
		require.NoError(t, store.Update(context.Background(), booking))

		updated, err := svc.EditBooking(context.Background(), EditBookingInput{
			ID:          booking.ID,
			VehicleID:   7,
			ActorID:     3,
			Start:       day("2024-06-10"),
			End:         day("2024-06-12"),
			NightlyRate: 120,
			Guests:      2,
		})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusRequested, updated.Status)
	})

	t.Run("a canceled booking cannot be revived by an edit", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.CancelBooking(context.Background(), booking.ID, 3)
		require.NoError(t, err)

		_, err = svc.EditBooking(context.Background(), EditBookingInput{
			ID:          booking.ID,
			VehicleID:   7,
			ActorID:     3,
			Start:       day("2024-06-10"),
			End:         day("2024-06-12"),
			NightlyRate: 120,
			Guests:      2,
		})
		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, string(models.BookingStatusCanceled), transitionErr.From)

		// The canceled booking still frees the vehicle for everyone else.
		reloaded, err := svc.Get(context.Background(), booking.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCanceled, reloaded.Status)
	})

	t.Run("a completed booking cannot be edited", func(t *testing.T) {
		svc, store, booking := setup(t)

		booking.Status = models.BookingStatusCompleted
		require.NoError(t, store.Update(context.Background(), booking))

		_, err := svc.EditBooking(context.Background(), EditBookingInput{
			ID:          booking.ID,
			VehicleID:   7,
			ActorID:     3,
			Start:       day("2024-06-10"),
			End:         day("2024-06-12"),
			NightlyRate: 120,
			Guests:      2,
		})
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr)
	})

	t.Run("only the renter may edit", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.EditBooking(context.Background(), EditBookingInput{
			ID:          booking.ID,
			VehicleID:   7,
			ActorID:     2, // the host
			Start:       day("2024-06-10"),
			End:         day("2024-06-12"),
			NightlyRate: 120,
		})
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("still detects conflicts with other bookings", func(t *testing.T) {
		svc, store, booking := setup(t)

		other := validRequest()
		other.RenterID = 9
		other.Start = day("2024-06-10")
		other.End = day("2024-06-12")
		otherBooking, err := svc.RequestBooking(context.Background(), other)
		require.NoError(t, err)
		otherBooking.Status = models.BookingStatusApproved
		require.NoError(t, store.Update(context.Background(), otherBooking))

		_, err = svc.EditBooking(context.Background(), EditBookingInput{
			ID:          booking.ID,
			VehicleID:   7,
			ActorID:     3,
			Start:       day("2024-06-11"),
			End:         day("2024-06-13"),
			NightlyRate: 120,
		})

		var conflictErr *ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})
}

func TestBookingTransitions(t *testing.T) {
	setup := func(t *testing.T) (*BookingService, *fakeBookingStore, *models.Booking) {
		store := newFakeBookingStore()
		svc := NewBookingService(store, &fakeProvisioner{}, true)
		booking, err := svc.RequestBooking(context.Background(), validRequest())
		require.NoError(t, err)
		return svc, store, booking
	}

	t.Run("approve records the simulated payment", func(t *testing.T) {
		svc, _, booking := setup(t)

		approved, err := svc.ApproveBooking(context.Background(), booking.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusApproved, approved.Status)
		assert.Equal(t, models.PaymentStatusSimulatedPaid, approved.PaymentStatus)
	})

	t.Run("only the host approves", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.ApproveBooking(context.Background(), booking.ID, 3)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("approve requires requested status", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.ApproveBooking(context.Background(), booking.ID, 2)
		require.NoError(t, err)

		_, err = svc.ApproveBooking(context.Background(), booking.ID, 2)
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr)
	})

	t.Run("decline voids the payment without a cancellation stamp", func(t *testing.T) {
		svc, _, booking := setup(t)

		declined, err := svc.DeclineBooking(context.Background(), booking.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCanceled, declined.Status)
		assert.Equal(t, models.PaymentStatusVoid, declined.PaymentStatus)
		assert.Nil(t, declined.CanceledAt)
	})

	t.Run("cancel stamps the cancellation time", func(t *testing.T) {
		svc, _, booking := setup(t)

		canceled, err := svc.CancelBooking(context.Background(), booking.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCanceled, canceled.Status)
		assert.Equal(t, models.PaymentStatusVoid, canceled.PaymentStatus)
		assert.NotNil(t, canceled.CanceledAt)
	})

	t.Run("either party may cancel, strangers may not", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.CancelBooking(context.Background(), booking.ID, 42)
		assert.ErrorIs(t, err, ErrNotAllowed)

		_, err = svc.CancelBooking(context.Background(), booking.ID, 2)
		assert.NoError(t, err)
	})

	t.Run("complete stamps the completion time", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.ApproveBooking(context.Background(), booking.ID, 2)
		require.NoError(t, err)

		completed, err := svc.MarkCompleted(context.Background(), booking.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCompleted, completed.Status)
		assert.NotNil(t, completed.CompletedAt)
	})

	t.Run("complete requires an approved or active booking", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.MarkCompleted(context.Background(), booking.ID, 2)
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr)
	})

	t.Run("terminal bookings reject every transition", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.CancelBooking(context.Background(), booking.ID, 3)
		require.NoError(t, err)

		var transitionErr *InvalidTransitionError
		_, err = svc.ApproveBooking(context.Background(), booking.ID, 2)
		assert.ErrorAs(t, err, &transitionErr)
		_, err = svc.DeclineBooking(context.Background(), booking.ID, 2)
		assert.ErrorAs(t, err, &transitionErr)
		_, err = svc.CancelBooking(context.Background(), booking.ID, 3)
		assert.ErrorAs(t, err, &transitionErr)
	})

	t.Run("the system actor bypasses party checks", func(t *testing.T) {
		svc, _, booking := setup(t)

		_, err := svc.ApproveBooking(context.Background(), booking.ID, SystemActor)
		assert.NoError(t, err)
	})
}

func TestGetBookingVisibility(t *testing.T) {
	store := newFakeBookingStore()
	svc := NewBookingService(store, &fakeProvisioner{}, true)
	booking, err := svc.RequestBooking(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), booking.ID, 3)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), booking.ID, 2)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), booking.ID, 42)
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = svc.Get(context.Background(), 999, 3)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
