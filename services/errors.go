package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotSignedIn is returned when an operation requires an authenticated
	// identity and none was supplied.
	ErrNotSignedIn = errors.New("must be signed in")

	// ErrNotAllowed is returned when the acting user is not a party to the
	// booking or thread they are operating on.
	ErrNotAllowed = errors.New("not allowed")

	ErrBookingNotFound = errors.New("booking not found")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// ValidationError reports malformed input. It is raised before any side
// effect is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports that a requested date range overlaps an existing
// active booking or a host-blocked range for the same vehicle. It is
// recoverable by choosing different dates.
type ConflictError struct {
	VehicleID uint
	Start     time.Time
	End       time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("vehicle %d is already reserved between %s and %s",
		e.VehicleID, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

// InvalidTransitionError reports an attempt to move a booking out of a state
// that does not permit the requested operation, including any transition out
// of a terminal state.
type InvalidTransitionError struct {
	BookingID uint
	From      string
	Op        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s booking %d in status %q", e.Op, e.BookingID, e.From)
}

// TransientStoreError wraps an underlying storage failure that the caller may
// retry. The core itself never retries.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error {
	return e.Err
}
