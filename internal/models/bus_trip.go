package models

import "time"

// BusTripStatus represents the lifecycle state of an agency bus trip
type BusTripStatus string

const (
	BusTripStatusActive    BusTripStatus = "ACTIVE"
	BusTripStatusCompleted BusTripStatus = "COMPLETED"
	BusTripStatusCancelled BusTripStatus = "CANCELLED"
)

const (
	// Ticket bookings must be created at least 2 hours before departure
	// and cancelled at least 24 hours before.
	MinTicketBookingLead = 2 * time.Hour
	MinTicketCancelLead  = 24 * time.Hour
)

// BusTrip is an agency-operated inter-city bus departure. Unlike Trip,
// available_seats is a live counter mutated with each ticket booking and
// cancellation; total_seats records the posted capacity.
type BusTrip struct {
	ID                  string        `json:"id" db:"id"`
	AgencyID            string        `json:"agency_id" db:"agency_id"`
	AgencyName          string        `json:"agency_name" db:"agency_name"`
	DepartCity          string        `json:"depart_city" db:"depart_city"`
	DepartLocation      string        `json:"depart_location" db:"depart_location"`
	DestinationCity     string        `json:"destination_city" db:"destination_city"`
	DestinationLocation string        `json:"destination_location" db:"destination_location"`
	TripDate            string        `json:"date" db:"trip_date"`
	TripTime            string        `json:"time" db:"trip_time"`
	TotalSeats          int           `json:"total_seats" db:"total_seats"`
	AvailableSeats      int           `json:"available_seats" db:"available_seats"`
	Price               int           `json:"price" db:"price"` // RWF per seat
	Status              BusTripStatus `json:"status" db:"status"`
	CreatedAt           int64         `json:"created_at" db:"created_at"`
	UpdatedAt           int64         `json:"updated_at" db:"updated_at"`
}

// Departure returns the bus trip's departure instant.
func (bt *BusTrip) Departure() (time.Time, error) {
	return CombineDepartTime(bt.TripDate, bt.TripTime)
}

// TicketBookingStatus mirrors BookingStatus; ticket bookings are
// auto-confirmed on creation so PENDING never occurs.
type TicketBookingStatus string

const (
	TicketStatusConfirmed TicketBookingStatus = "CONFIRMED"
	TicketStatusCancelled TicketBookingStatus = "CANCELLED"
	TicketStatusCompleted TicketBookingStatus = "COMPLETED"
)

// TicketLiveStatuses returns the ticket statuses that hold a purchase for
// duplicate and slot-conflict checks. Only cancellation frees the slot.
func TicketLiveStatuses() []string {
	return []string{
		string(TicketStatusConfirmed),
		string(TicketStatusCompleted),
	}
}

// TicketBooking is a passenger's seat purchase on a bus trip
type TicketBooking struct {
	ID                string              `json:"id" db:"id"`
	BusTripID         string              `json:"bus_trip_id" db:"bus_trip_id"`
	UserID            string              `json:"user_id" db:"user_id"`
	Seats             int                 `json:"seats" db:"seats"`
	Status            TicketBookingStatus `json:"status" db:"status"`
	MomoTransactionID *string             `json:"momo_transaction_id" db:"momo_transaction_id"`
	CreatedAt         int64               `json:"created_at" db:"created_at"`
	UpdatedAt         int64               `json:"updated_at" db:"updated_at"`
}

// CheckTicketBookingWindow enforces the 2-hour minimum lead for buying a
// ticket.
func CheckTicketBookingWindow(departure, now time.Time) error {
	if !departure.After(now) {
		return ErrTripDeparted
	}
	if departure.Sub(now) < MinTicketBookingLead {
		return ErrDepartureTooClose
	}
	return nil
}

// CheckTicketCancelWindow enforces the 24-hour minimum lead for cancelling
// a ticket.
func CheckTicketCancelWindow(departure, now time.Time) error {
	if !departure.After(now) {
		return ErrTripDeparted
	}
	if departure.Sub(now) < MinTicketCancelLead {
		return ErrDepartureTooClose
	}
	return nil
}
