package services

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"vehicle-rental-server/models"
)

// SystemActor marks lifecycle transitions driven by the server itself (the
// trip status job) rather than by a signed-in user.
const SystemActor uint = 0

// BookingTx is the view of the booking store available inside a vehicle lock.
// Reads and the following write run against the same transaction, which is
// what closes the historical read-then-write double-booking race.
type BookingTx interface {
	ActiveForVehicle(ctx context.Context, vehicleID uint) ([]models.Booking, error)
	BlockedRangesForVehicle(ctx context.Context, vehicleID uint) ([]models.BlockedRange, error)
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
}

// BookingStore owns booking persistence.
type BookingStore interface {
	BookingTx
	ByID(ctx context.Context, id uint) (*models.Booking, error)
	ForRenter(ctx context.Context, renterID uint) ([]models.Booking, error)
	ForHost(ctx context.Context, hostID uint) ([]models.Booking, error)
	// WithVehicleLock serializes booking writes per vehicle. The callback's
	// BookingTx is bound to the lock's transaction.
	WithVehicleLock(ctx context.Context, vehicleID uint, fn func(tx BookingTx) error) error
}

// ThreadProvisioner is implemented by the thread service; every booking
// creation or edit schedules an idempotent provisioning call through it.
type ThreadProvisioner interface {
	EnsureBookingThread(ctx context.Context, req EnsureThreadRequest) error
}

// BookingService enforces the booking lifecycle and date-conflict invariants.
type BookingService struct {
	store    BookingStore
	threads  ThreadProvisioner
	failOpen bool
}

// NewBookingService creates a booking service. failOpen controls whether a
// failed availability read degrades to "no conflict" (with a logged warning)
// or surfaces a TransientStoreError.
func NewBookingService(store BookingStore, threads ThreadProvisioner, failOpen bool) *BookingService {
	return &BookingService{
		store:    store,
		threads:  threads,
		failOpen: failOpen,
	}
}

// NightsBetween computes the billable nights for a stay: the day difference
// rounded to the nearest whole day, never less than one.
func NightsBetween(start, end time.Time) int {
	nights := int(math.Round(end.Sub(start).Hours() / 24))
	if nights < 1 {
		return 1
	}
	return nights
}

// Overlaps tests two half-open intervals [aStart, aEnd) and [bStart, bEnd).
// Touching intervals (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

type RequestBookingInput struct {
	VehicleID    uint
	VehicleTitle string
	HostID       uint
	RenterID     uint
	Start        time.Time
	End          time.Time
	NightlyRate  float64
	QuotedTotal  *float64
	Guests       int
	Note         string
}

type EditBookingInput struct {
	ID           uint
	VehicleID    uint
	VehicleTitle string
	ActorID      uint
	Start        time.Time
	End          time.Time
	NightlyRate  float64
	QuotedTotal  *float64
	Guests       int
	Note         string
}

// RequestBooking creates a booking in requested status after validating input
// and checking the vehicle's dates, then provisions the booking's thread.
func (s *BookingService) RequestBooking(ctx context.Context, in RequestBookingInput) (*models.Booking, error) {
	if in.RenterID == 0 {
		return nil, ErrNotSignedIn
	}
	if in.VehicleID == 0 {
		return nil, &ValidationError{Field: "vehicle_id", Reason: "is required"}
	}
	if err := validateStay(in.Start, in.End, in.NightlyRate); err != nil {
		return nil, err
	}

	nights := NightsBetween(in.Start, in.End)
	booking := &models.Booking{
		VehicleID:     in.VehicleID,
		HostID:        in.HostID,
		RenterID:      in.RenterID,
		Start:         in.Start,
		End:           in.End,
		Status:        models.BookingStatusRequested,
		PaymentStatus: models.PaymentStatusUnpaid,
		NightlyRate:   in.NightlyRate,
		Nights:        nights,
		QuotedTotal:   quotedTotal(in.QuotedTotal, in.NightlyRate, nights),
		Guests:        normalizeGuests(in.Guests),
		Note:          normalizeNote(in.Note),
	}

	err := s.store.WithVehicleLock(ctx, in.VehicleID, func(tx BookingTx) error {
		conflict, err := s.hasConflict(ctx, tx, in.VehicleID, in.Start, in.End, 0)
		if err != nil {
			return err
		}
		if conflict {
			return &ConflictError{VehicleID: in.VehicleID, Start: in.Start, End: in.End}
		}
		return tx.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.ensureThread(ctx, booking, in.VehicleTitle, in.RenterID)
	return booking, nil
}

// EditBooking recomputes the stay, re-runs the conflict check excluding the
// booking itself and resets status to requested. Terminal bookings cannot be
// edited; the requested-only restriction for live bookings is a convention of
// the calling UI, not enforced here.
func (s *BookingService) EditBooking(ctx context.Context, in EditBookingInput) (*models.Booking, error) {
	if in.ID == 0 {
		return nil, &ValidationError{Field: "id", Reason: "is required"}
	}
	if in.VehicleID == 0 {
		return nil, &ValidationError{Field: "vehicle_id", Reason: "is required"}
	}
	if err := validateStay(in.Start, in.End, in.NightlyRate); err != nil {
		return nil, err
	}

	booking, err := s.store.ByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if in.ActorID != SystemActor && booking.RenterID != in.ActorID {
		return nil, ErrNotAllowed
	}
	if booking.IsTerminal() {
		return nil, &InvalidTransitionError{BookingID: in.ID, From: string(booking.Status), Op: "edit"}
	}

	nights := NightsBetween(in.Start, in.End)
	err = s.store.WithVehicleLock(ctx, in.VehicleID, func(tx BookingTx) error {
		conflict, err := s.hasConflict(ctx, tx, in.VehicleID, in.Start, in.End, in.ID)
		if err != nil {
			return err
		}
		if conflict {
			return &ConflictError{VehicleID: in.VehicleID, Start: in.Start, End: in.End}
		}

		booking.Start = in.Start
		booking.End = in.End
		booking.NightlyRate = in.NightlyRate
		booking.Nights = nights
		booking.QuotedTotal = quotedTotal(in.QuotedTotal, in.NightlyRate, nights)
		booking.Guests = normalizeGuests(in.Guests)
		booking.Note = normalizeNote(in.Note)
		booking.Status = models.BookingStatusRequested
		return tx.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.ensureThread(ctx, booking, in.VehicleTitle, in.ActorID)
	return booking, nil
}

// ApproveBooking moves a requested booking to approved and records the
// simulated payment.
func (s *BookingService) ApproveBooking(ctx context.Context, id, actorID uint) (*models.Booking, error) {
	booking, err := s.loadForHostAction(ctx, id, actorID, "approve")
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusRequested {
		return nil, &InvalidTransitionError{BookingID: id, From: string(booking.Status), Op: "approve"}
	}
	booking.Status = models.BookingStatusApproved
	booking.PaymentStatus = models.PaymentStatusSimulatedPaid
	if err := s.store.Update(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// DeclineBooking cancels a requested or approved booking on the host's
// behalf and voids its payment.
func (s *BookingService) DeclineBooking(ctx context.Context, id, actorID uint) (*models.Booking, error) {
	booking, err := s.loadForHostAction(ctx, id, actorID, "decline")
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusRequested && booking.Status != models.BookingStatusApproved {
		return nil, &InvalidTransitionError{BookingID: id, From: string(booking.Status), Op: "decline"}
	}
	booking.Status = models.BookingStatusCanceled
	booking.PaymentStatus = models.PaymentStatusVoid
	if err := s.store.Update(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// MarkCompleted finishes an approved or active booking and stamps the
// completion time.
func (s *BookingService) MarkCompleted(ctx context.Context, id, actorID uint) (*models.Booking, error) {
	booking, err := s.loadForHostAction(ctx, id, actorID, "complete")
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusApproved && booking.Status != models.BookingStatusActive {
		return nil, &InvalidTransitionError{BookingID: id, From: string(booking.Status), Op: "complete"}
	}
	now := time.Now()
	booking.Status = models.BookingStatusCompleted
	booking.CompletedAt = &now
	if err := s.store.Update(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBooking cancels a booking from any non-terminal state, voids its
// payment and stamps the cancellation time. Either party may cancel.
func (s *BookingService) CancelBooking(ctx context.Context, id, actorID uint) (*models.Booking, error) {
	booking, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != SystemActor && actorID != booking.HostID && actorID != booking.RenterID {
		return nil, ErrNotAllowed
	}
	if booking.IsTerminal() {
		return nil, &InvalidTransitionError{BookingID: id, From: string(booking.Status), Op: "cancel"}
	}
	now := time.Now()
	booking.Status = models.BookingStatusCanceled
	booking.PaymentStatus = models.PaymentStatusVoid
	booking.CanceledAt = &now
	if err := s.store.Update(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Get returns a booking visible to the given actor.
func (s *BookingService) Get(ctx context.Context, id, actorID uint) (*models.Booking, error) {
	booking, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != SystemActor && actorID != booking.HostID && actorID != booking.RenterID {
		return nil, ErrNotAllowed
	}
	return booking, nil
}

// ListForRenter returns the user's trips.
func (s *BookingService) ListForRenter(ctx context.Context, renterID uint) ([]models.Booking, error) {
	return s.store.ForRenter(ctx, renterID)
}

// ListForHost returns incoming requests and trips on the user's vehicles.
func (s *BookingService) ListForHost(ctx context.Context, hostID uint) ([]models.Booking, error) {
	return s.store.ForHost(ctx, hostID)
}

// hasConflict retrieves the vehicle's active bookings and blocked ranges and
// tests half-open overlap against the candidate range, skipping excludeID.
// Read failures degrade to "no conflict" when fail-open is configured.
func (s *BookingService) hasConflict(ctx context.Context, tx BookingTx, vehicleID uint, start, end time.Time, excludeID uint) (bool, error) {
	existing, err := tx.ActiveForVehicle(ctx, vehicleID)
	if err != nil {
		if !s.failOpen {
			return false, &TransientStoreError{Op: "conflict check", Err: err}
		}
		log.Printf("⚠️ Booking conflict check skipped for vehicle %d: %v", vehicleID, err)
		existing = nil
	}
	for i := range existing {
		if excludeID != 0 && existing[i].ID == excludeID {
			continue
		}
		if Overlaps(start, end, existing[i].Start, existing[i].End) {
			return true, nil
		}
	}

	blocked, err := tx.BlockedRangesForVehicle(ctx, vehicleID)
	if err != nil {
		if !s.failOpen {
			return false, &TransientStoreError{Op: "blocked range check", Err: err}
		}
		log.Printf("⚠️ Blocked range check skipped for vehicle %d: %v", vehicleID, err)
		blocked = nil
	}
	for i := range blocked {
		if Overlaps(start, end, blocked[i].Start, blocked[i].End) {
			return true, nil
		}
	}
	return false, nil
}

// ensureThread provisions the booking's thread. Failures are logged, not
// surfaced: the provisioning call is idempotent and retried on the next
// booking interaction.
func (s *BookingService) ensureThread(ctx context.Context, booking *models.Booking, vehicleTitle string, createdBy uint) {
	if s.threads == nil {
		return
	}
	err := s.threads.EnsureBookingThread(ctx, EnsureThreadRequest{
		BookingID:    booking.ID,
		VehicleTitle: vehicleTitle,
		HostID:       booking.HostID,
		RenterID:     booking.RenterID,
		CreatedBy:    createdBy,
	})
	if err != nil {
		log.Printf("⚠️ Thread provisioning failed for booking %d: %v", booking.ID, err)
	}
}

func (s *BookingService) loadForHostAction(ctx context.Context, id, actorID uint, op string) (*models.Booking, error) {
	booking, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != SystemActor && booking.HostID != actorID {
		return nil, ErrNotAllowed
	}
	if booking.IsTerminal() {
		return nil, &InvalidTransitionError{BookingID: id, From: string(booking.Status), Op: op}
	}
	return booking, nil
}

func validateStay(start, end time.Time, nightlyRate float64) error {
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "dates", Reason: "start and end are required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "dates", Reason: "end must be after start"}
	}
	if nightlyRate < 0 {
		return &ValidationError{Field: "nightly_rate", Reason: "must not be negative"}
	}
	return nil
}

func quotedTotal(override *float64, nightlyRate float64, nights int) float64 {
	if override != nil {
		return *override
	}
	return nightlyRate * float64(nights)
}

func normalizeGuests(guests int) int {
	if guests < 1 {
		return 1
	}
	return guests
}

func normalizeNote(note string) *string {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
