package models

import (
	"testing"
	"time"
)

func TestCombineDepartTime(t *testing.T) {
	dep, err := CombineDepartTime("2026-04-01", "08:30")
	if err != nil {
		t.Fatalf("CombineDepartTime returned error: %v", err)
	}
	want := time.Date(2026, 4, 1, 8, 30, 0, 0, KigaliTZ)
	if !dep.Equal(want) {
		t.Errorf("CombineDepartTime = %v, want %v", dep, want)
	}

	for _, tc := range []struct{ date, clock string }{
		{"2026-4-1", "08:30"},
		{"2026-04-01", "8:30pm"},
		{"01/04/2026", "08:30"},
		{"", ""},
		{"2026-04-01", "25:00"},
	} {
		if _, err := CombineDepartTime(tc.date, tc.clock); err == nil {
			t.Errorf("CombineDepartTime(%q, %q) accepted malformed input", tc.date, tc.clock)
		}
	}
}

func TestValidateTripSchedule(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, KigaliTZ)

	if _, err := ValidateTripSchedule("2026-04-01", "09:00", now); err != nil {
		t.Errorf("future departure rejected: %v", err)
	}
	if _, err := ValidateTripSchedule("2026-04-01", "08:00", now); err == nil {
		t.Error("departure equal to now must be rejected")
	}
	if _, err := ValidateTripSchedule("2026-03-31", "23:00", now); err == nil {
		t.Error("past departure must be rejected")
	}
}
