package models

import (
	"testing"
	"time"
)

func TestCheckBookingWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, KigaliTZ)

	tests := []struct {
		name      string
		departure time.Time
		wantErr   error
	}{
		{"well in the future", now.Add(6 * time.Hour), nil},
		{"exactly one hour out", now.Add(time.Hour), nil},
		{"59 minutes out", now.Add(59 * time.Minute), ErrDepartureTooClose},
		{"departing now", now, ErrTripDeparted},
		{"already departed", now.Add(-2 * time.Hour), ErrTripDeparted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckBookingWindow(tt.departure, now); got != tt.wantErr {
				t.Errorf("CheckBookingWindow() = %v, want %v", got, tt.wantErr)
			}
		})
	}
}

func TestValidateSeatCount(t *testing.T) {
	for _, seats := range []int{1, 2, 3, 4} {
		if err := ValidateSeatCount(seats); err != nil {
			t.Errorf("ValidateSeatCount(%d) = %v, want nil", seats, err)
		}
	}
	for _, seats := range []int{0, -1, 5, 100} {
		if err := ValidateSeatCount(seats); err == nil {
			t.Errorf("ValidateSeatCount(%d) = nil, want error", seats)
		}
	}
}

// Mirrors the four-seat trip scenario: 5 seats rejected outright, 3 seats
// reserved as PENDING, then 2 more no longer fit because PENDING holds
// count against capacity.
func TestSeatsRemainingScenario(t *testing.T) {
	capacity := 4

	if remaining := SeatsRemaining(capacity, 0); remaining != 4 {
		t.Fatalf("empty trip: remaining = %d, want 4", remaining)
	}
	if requested := 5; requested > SeatsRemaining(capacity, 0) {
		// rejected: insufficient seats
	} else {
		t.Fatal("5-seat request on a 4-seat trip should not fit")
	}

	// 3 seats booked as PENDING
	booked := 3
	remaining := SeatsRemaining(capacity, booked)
	if remaining != 1 {
		t.Fatalf("after 3 PENDING seats: remaining = %d, want 1", remaining)
	}
	if requested := 2; requested <= remaining {
		t.Fatal("2-seat request should be rejected once PENDING+requested > capacity")
	}
}

func TestSeatsRemainingNeverNegative(t *testing.T) {
	if got := SeatsRemaining(4, 7); got != 0 {
		t.Errorf("SeatsRemaining(4, 7) = %d, want 0", got)
	}
}

func TestSeatHoldingStatuses(t *testing.T) {
	got := SeatHoldingStatuses()
	want := map[string]bool{"PENDING": true, "CONFIRMED": true, "COMPLETED": true}
	if len(got) != len(want) {
		t.Fatalf("SeatHoldingStatuses() = %v, want PENDING/CONFIRMED/COMPLETED", got)
	}
	for _, s := range got {
		if !want[s] {
			t.Errorf("unexpected seat-holding status %q", s)
		}
	}
}

func TestBookingIsFinal(t *testing.T) {
	tests := []struct {
		status BookingStatus
		want   bool
	}{
		{BookingStatusPending, false},
		{BookingStatusConfirmed, false},
		{BookingStatusCancelled, true},
		{BookingStatusCompleted, true},
	}
	for _, tt := range tests {
		b := Booking{Status: tt.status}
		if got := b.IsFinal(); got != tt.want {
			t.Errorf("IsFinal() with status %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
