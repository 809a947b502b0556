package models

import (
	"errors"
	"fmt"
	"time"
)

// BookingStatus represents the lifecycle state of a carpooling booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

const (
	MinSeatsPerBooking = 1
	MaxSeatsPerBooking = 4

	// Carpooling bookings must be made and cancelled at least this long
	// before departure.
	MinBookingLead = time.Hour
)

// Booking statuses that count against a trip's capacity. PENDING holds a
// seat reservation so two concurrent bookings cannot both be confirmed
// into the same seats; the same rule applies at creation and confirmation
// time.
var seatHoldingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCompleted,
}

// SeatHoldingStatuses returns the booking statuses summed when computing
// booked seats for a trip.
func SeatHoldingStatuses() []string {
	out := make([]string, len(seatHoldingStatuses))
	for i, s := range seatHoldingStatuses {
		out[i] = string(s)
	}
	return out
}

var (
	ErrTripDeparted      = errors.New("trip has already departed")
	ErrDepartureTooClose = errors.New("less than 1 hour before departure")
)

// Booking represents a passenger's seat reservation on a carpooling trip
type Booking struct {
	ID                string        `json:"id" db:"id"`
	TripID            string        `json:"trip_id" db:"trip_id"`
	UserID            string        `json:"user_id" db:"user_id"`
	Seats             int           `json:"seats" db:"seats"`
	Status            BookingStatus `json:"status" db:"status"`
	MomoTransactionID *string       `json:"momo_transaction_id" db:"momo_transaction_id"`
	CreatedAt         int64         `json:"created_at" db:"created_at"`
	UpdatedAt         int64         `json:"updated_at" db:"updated_at"`
}

// ValidateSeatCount checks the requested seat count is within the allowed
// per-booking range.
func ValidateSeatCount(seats int) error {
	if seats < MinSeatsPerBooking || seats > MaxSeatsPerBooking {
		return fmt.Errorf("seats must be between %d and %d", MinSeatsPerBooking, MaxSeatsPerBooking)
	}
	return nil
}

// SeatsRemaining computes how many seats are still open given the trip's
// posted capacity and the sum of seat-holding bookings.
func SeatsRemaining(capacity, booked int) int {
	remaining := capacity - booked
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CheckBookingWindow enforces the departure timing rules shared by booking
// creation and cancellation: the trip must be strictly in the future and
// at least MinBookingLead away.
func CheckBookingWindow(departure, now time.Time) error {
	if !departure.After(now) {
		return ErrTripDeparted
	}
	if departure.Sub(now) < MinBookingLead {
		return ErrDepartureTooClose
	}
	return nil
}

// IsFinal reports whether the booking is in a terminal state.
func (b *Booking) IsFinal() bool {
	return b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted
}
