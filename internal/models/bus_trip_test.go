package models

import (
	"testing"
	"time"
)

func TestCheckTicketBookingWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, KigaliTZ)

	tests := []struct {
		name      string
		departure time.Time
		wantErr   error
	}{
		{"next day", now.Add(24 * time.Hour), nil},
		{"exactly two hours", now.Add(2 * time.Hour), nil},
		{"90 minutes", now.Add(90 * time.Minute), ErrDepartureTooClose},
		{"departed", now.Add(-time.Hour), ErrTripDeparted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckTicketBookingWindow(tt.departure, now); got != tt.wantErr {
				t.Errorf("CheckTicketBookingWindow() = %v, want %v", got, tt.wantErr)
			}
		})
	}
}

func TestCheckTicketCancelWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, KigaliTZ)

	tests := []struct {
		name      string
		departure time.Time
		wantErr   error
	}{
		{"two days out", now.Add(48 * time.Hour), nil},
		{"exactly 24 hours", now.Add(24 * time.Hour), nil},
		{"23 hours", now.Add(23 * time.Hour), ErrDepartureTooClose},
		{"departed", now.Add(-time.Minute), ErrTripDeparted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckTicketCancelWindow(tt.departure, now); got != tt.wantErr {
				t.Errorf("CheckTicketCancelWindow() = %v, want %v", got, tt.wantErr)
			}
		})
	}
}

func TestTicketLiveStatuses(t *testing.T) {
	live := map[string]bool{}
	for _, s := range TicketLiveStatuses() {
		live[s] = true
	}

	if !live[string(TicketStatusConfirmed)] {
		t.Error("CONFIRMED tickets must block a duplicate purchase")
	}
	if live[string(TicketStatusCancelled)] {
		t.Error("a cancelled ticket must not block rebooking the trip")
	}
}
