package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tugende-backend/internal/metrics"
	"tugende-backend/internal/middleware"
	"tugende-backend/internal/models"
	"tugende-backend/internal/services"
	"tugende-backend/internal/websocket"
	"tugende-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type CreateBookingRequest struct {
	TripID string `json:"trip_id"`
	Seats  int    `json:"seats"`
}

// CreateBooking reserves seats on a carpooling trip as a PENDING booking.
//
// The availability check and the insert run in one transaction holding a
// row lock on the trip, so two concurrent requests for the last seats
// serialize and the loser sees the winner's PENDING row.
func CreateBooking(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService, momo services.MomoClient, sms services.SMSSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}
		if req.TripID == "" {
			utils.RespondValidationError(w, map[string]string{"trip_id": "trip_id is required"})
			return
		}
		if err := models.ValidateSeatCount(req.Seats); err != nil {
			utils.RespondValidationError(w, map[string]string{"seats": err.Error()})
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		// Serialization point: one seat-accounting transaction per trip
		var trip models.Trip
		err = tx.Get(&trip, "SELECT * FROM trips WHERE id = $1 FOR UPDATE", req.TripID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Trip not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to load trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.Status != models.TripStatusActive {
			utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Trip is not active")
			return
		}
		if trip.DriverID == userClaims.UserID {
			utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Drivers cannot book their own trip")
			return
		}

		departure, err := trip.Departure()
		if err != nil {
			log.Printf("❌ Trip %s has unparseable schedule: %v", trip.ID, err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Trip schedule is invalid")
			return
		}
		if err := models.CheckBookingWindow(departure, time.Now()); err != nil {
			if errors.Is(err, models.ErrTripDeparted) {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Trip has already departed")
			} else {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Bookings close 1 hour before departure")
			}
			return
		}

		// One live booking per passenger per trip
		var existing int
		err = tx.Get(&existing, `
			SELECT COUNT(*) FROM bookings
			WHERE trip_id = $1 AND user_id = $2 AND status IN ('PENDING', 'CONFIRMED')`,
			trip.ID, userClaims.UserID,
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if existing > 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "You already have a booking for this trip")
			return
		}

		// No double-booking the same departure slot across trips
		var overlapping int
		err = tx.Get(&overlapping, `
			SELECT COUNT(*) FROM bookings b
			JOIN trips t ON t.id = b.trip_id
			WHERE b.user_id = $1 AND b.status IN ('PENDING', 'CONFIRMED')
			AND t.trip_date = $2 AND t.trip_time = $3`,
			userClaims.UserID, trip.TripDate, trip.TripTime,
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if overlapping > 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "You already have a booking for another trip at this time")
			return
		}

		// PENDING reservations hold seats so concurrent creations cannot
		// oversell the trip between creation and confirmation
		var booked int
		err = tx.Get(&booked, `
			SELECT COALESCE(SUM(seats), 0) FROM bookings
			WHERE trip_id = $1 AND status = ANY($2)`,
			trip.ID, pq.Array(models.SeatHoldingStatuses()),
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		available := models.SeatsRemaining(trip.AvailableSeats, booked)
		if available <= 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "Trip is fully booked")
			return
		}
		if req.Seats > available {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
				fmt.Sprintf("Only %d seat(s) left on this trip", available))
			return
		}

		now := time.Now().Unix()
		booking := models.Booking{
			ID:        uuid.New().String(),
			TripID:    trip.ID,
			UserID:    userClaims.UserID,
			Seats:     req.Seats,
			Status:    models.BookingStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = tx.Exec(`
			INSERT INTO bookings (id, trip_id, user_id, seats, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			booking.ID, booking.TripID, booking.UserID, booking.Seats,
			booking.Status, booking.CreatedAt, booking.UpdatedAt,
		)
		if err != nil {
			log.Printf("❌ Failed to insert booking: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			log.Printf("❌ Failed to commit booking: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		metrics.BookingsCreated.Inc()
		log.Printf("✅ Booking created: %s (%d seats on trip %s)", booking.ID, booking.Seats, trip.ID)

		// Payment and notifications are fire-and-forget side effects
		go func() {
			amount := trip.Price * booking.Seats
			txID, err := momo.RequestPayment(userClaims.Phone, amount, booking.ID)
			if err != nil {
				log.Printf("⚠️  MoMo request failed for booking %s: %v", booking.ID, err)
				return
			}
			if _, err := db.Exec("UPDATE bookings SET momo_transaction_id = $1, updated_at = $2 WHERE id = $3",
				txID, time.Now().Unix(), booking.ID); err != nil {
				log.Printf("⚠️  Failed to record MoMo transaction for %s: %v", booking.ID, err)
			}
			sms.Send(userClaims.Phone, fmt.Sprintf(
				"Booking received for %s → %s on %s %s. You will be notified when the driver confirms.",
				trip.DepartCity, trip.DestinationCity, trip.TripDate, trip.TripTime))
		}()
		go pushEvent(db, hub, trip.DriverID,
			bookingEvent{Type: "booking_request", Booking: &booking},
			fcmBookingRequest(fcm, booking.ID, booking.Seats))

		utils.RespondData(w, http.StatusCreated, booking)
	}
}

// ConfirmBooking lets the trip's driver accept a PENDING booking. The
// availability recheck uses the same counting rule as creation (PENDING
// holds seats) under the same trip row lock, so a confirmation can never
// oversell.
func ConfirmBooking(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		bookingID := chi.URLParam(r, "id")

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var booking models.Booking
		err = tx.Get(&booking, "SELECT * FROM bookings WHERE id = $1", bookingID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Booking not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		var trip models.Trip
		if err := tx.Get(&trip, "SELECT * FROM trips WHERE id = $1 FOR UPDATE", booking.TripID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.DriverID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the trip's driver may confirm bookings")
			return
		}
		if booking.Status != models.BookingStatusPending {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
				fmt.Sprintf("Booking is %s, only PENDING bookings can be confirmed", booking.Status))
			return
		}

		var booked int
		err = tx.Get(&booked, `
			SELECT COALESCE(SUM(seats), 0) FROM bookings
			WHERE trip_id = $1 AND status = ANY($2)`,
			trip.ID, pq.Array(models.SeatHoldingStatuses()),
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if booked > trip.AvailableSeats {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "Trip no longer has enough seats for this booking")
			return
		}

		booking.Status = models.BookingStatusConfirmed
		booking.UpdatedAt = time.Now().Unix()
		if _, err := tx.Exec("UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3",
			booking.Status, booking.UpdatedAt, booking.ID); err != nil {
			log.Printf("❌ Failed to confirm booking: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		metrics.BookingsConfirmed.Inc()
		log.Printf("✅ Booking confirmed: %s by driver %s", booking.ID, userClaims.UserID)

		go pushEvent(db, hub, booking.UserID,
			bookingEvent{Type: "booking_confirmed", Booking: &booking},
			fcmBookingStatus(fcm, booking.ID, string(booking.Status)))

		utils.RespondData(w, http.StatusOK, booking)
	}
}

// CancelBooking lets the owning passenger cancel a live booking up to one
// hour before departure. Availability is derived, so no counter needs
// restoring.
func CancelBooking(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService, momo services.MomoClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		bookingID := chi.URLParam(r, "id")

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var booking models.Booking
		err = tx.Get(&booking, "SELECT * FROM bookings WHERE id = $1 FOR UPDATE", bookingID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Booking not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if booking.UserID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the booking's passenger may cancel it")
			return
		}
		if booking.IsFinal() {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
				fmt.Sprintf("Booking is already %s", booking.Status))
			return
		}

		var trip models.Trip
		if err := tx.Get(&trip, "SELECT * FROM trips WHERE id = $1", booking.TripID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		departure, err := trip.Departure()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Trip schedule is invalid")
			return
		}
		if err := models.CheckBookingWindow(departure, time.Now()); err != nil {
			if errors.Is(err, models.ErrTripDeparted) {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Trip has already departed")
			} else {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Cancellations close 1 hour before departure")
			}
			return
		}

		booking.Status = models.BookingStatusCancelled
		booking.UpdatedAt = time.Now().Unix()
		if _, err := tx.Exec("UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3",
			booking.Status, booking.UpdatedAt, booking.ID); err != nil {
			log.Printf("❌ Failed to cancel booking: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		metrics.BookingsCancelled.Inc()
		log.Printf("✅ Booking cancelled: %s by passenger %s", booking.ID, userClaims.UserID)

		if booking.MomoTransactionID != nil {
			go func(txID string) {
				if err := momo.Refund(txID); err != nil {
					log.Printf("⚠️  MoMo refund failed for booking %s: %v", booking.ID, err)
				}
			}(*booking.MomoTransactionID)
		}
		go pushEvent(db, hub, trip.DriverID,
			bookingEvent{Type: "booking_cancelled", Booking: &booking},
			fcmBookingStatus(fcm, booking.ID, string(booking.Status)))

		utils.RespondData(w, http.StatusOK, booking)
	}
}

// CompleteBooking lets the trip's driver mark a CONFIRMED booking as
// COMPLETED once the trip has departed.
func CompleteBooking(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		bookingID := chi.URLParam(r, "id")

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var booking models.Booking
		err = tx.Get(&booking, "SELECT * FROM bookings WHERE id = $1 FOR UPDATE", bookingID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Booking not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		var trip models.Trip
		if err := tx.Get(&trip, "SELECT * FROM trips WHERE id = $1", booking.TripID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.DriverID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the trip's driver may complete bookings")
			return
		}
		if booking.Status != models.BookingStatusConfirmed {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "Only CONFIRMED bookings can be completed")
			return
		}

		departure, err := trip.Departure()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Trip schedule is invalid")
			return
		}
		if departure.After(time.Now()) {
			utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Trip has not departed yet")
			return
		}

		booking.Status = models.BookingStatusCompleted
		booking.UpdatedAt = time.Now().Unix()
		if _, err := tx.Exec("UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3",
			booking.Status, booking.UpdatedAt, booking.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, booking)
	}
}

// BookingWithTrip joins a booking with its trip for listings
type BookingWithTrip struct {
	models.Booking
	DepartCity      string `json:"depart_city" db:"depart_city"`
	DestinationCity string `json:"destination_city" db:"destination_city"`
	TripDate        string `json:"date" db:"trip_date"`
	TripTime        string `json:"time" db:"trip_time"`
	Price           int    `json:"price" db:"price"`
}

// GetMyBookings lists the caller's bookings, newest first
func GetMyBookings(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var bookings []BookingWithTrip
		err := db.Select(&bookings, `
			SELECT b.*, t.depart_city, t.destination_city, t.trip_date, t.trip_time, t.price
			FROM bookings b
			JOIN trips t ON t.id = b.trip_id
			WHERE b.user_id = $1
			ORDER BY b.created_at DESC`,
			userClaims.UserID,
		)
		if err != nil {
			log.Printf("❌ Failed to list bookings: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, bookings)
	}
}

// GetTripBookings lists bookings on a trip for its driver
func GetTripBookings(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		tripID := chi.URLParam(r, "id")

		var trip models.Trip
		err := db.Get(&trip, "SELECT * FROM trips WHERE id = $1", tripID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Trip not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.DriverID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the trip's driver may view its bookings")
			return
		}

		var bookings []models.Booking
		if err := db.Select(&bookings, "SELECT * FROM bookings WHERE trip_id = $1 ORDER BY created_at ASC", trip.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, bookings)
	}
}
