package models

import (
	"fmt"
	"time"
)

// TripStatus represents the lifecycle state of a carpooling trip
type TripStatus string

const (
	TripStatusActive    TripStatus = "ACTIVE"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
)

const (
	TripDateLayout = "2006-01-02"
	TripTimeLayout = "15:04"
)

// Rwanda has a single timezone (CAT, UTC+2, no DST). Trip times are
// wall-clock strings with no zone, so this is the zone they resolve in.
var KigaliTZ = time.FixedZone("CAT", 2*60*60)

// Trip represents a carpooling trip posted by a verified driver
type Trip struct {
	ID                  string     `json:"id" db:"id"`
	DriverID            string     `json:"driver_id" db:"driver_id"`
	DepartCity          string     `json:"depart_city" db:"depart_city"`
	DepartLocation      string     `json:"depart_location" db:"depart_location"`
	DestinationCity     string     `json:"destination_city" db:"destination_city"`
	DestinationLocation string     `json:"destination_location" db:"destination_location"`
	TripDate            string     `json:"date" db:"trip_date"`
	TripTime            string     `json:"time" db:"trip_time"`
	AvailableSeats      int        `json:"available_seats" db:"available_seats"`
	Price               int        `json:"price" db:"price"` // RWF per seat
	Status              TripStatus `json:"status" db:"status"`
	CreatedAt           int64      `json:"created_at" db:"created_at"`
	UpdatedAt           int64      `json:"updated_at" db:"updated_at"`
}

// CombineDepartTime resolves a trip's date + wall-clock time strings into
// a single instant in the Rwandan timezone.
func CombineDepartTime(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(TripDateLayout+" "+TripTimeLayout, date+" "+clock, KigaliTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trip date/time %q %q: %w", date, clock, err)
	}
	return t, nil
}

// Departure returns the trip's departure instant.
func (t *Trip) Departure() (time.Time, error) {
	return CombineDepartTime(t.TripDate, t.TripTime)
}

// ValidateTripSchedule checks the date/time strings parse and lie in the
// future. Returns the resolved departure instant.
func ValidateTripSchedule(date, clock string, now time.Time) (time.Time, error) {
	dep, err := CombineDepartTime(date, clock)
	if err != nil {
		return time.Time{}, err
	}
	if !dep.After(now) {
		return time.Time{}, fmt.Errorf("departure %s is not in the future", dep.Format(time.RFC3339))
	}
	return dep, nil
}
