package models

// Message is one chat message exchanged between the passenger and the
// driver of a confirmed booking.
type Message struct {
	ID        string `json:"id" db:"id"`
	BookingID string `json:"booking_id" db:"booking_id"`
	SenderID  string `json:"sender_id" db:"sender_id"`
	Body      string `json:"body" db:"body"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

const MaxMessageLength = 2000
