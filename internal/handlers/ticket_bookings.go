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
	"tugende-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type CreateTicketRequest struct {
	BusTripID string `json:"bus_trip_id"`
	Seats     int    `json:"seats"`
}

// CreateTicketBooking buys seats on a bus trip. Tickets are confirmed
// immediately; the availability check is a conditional decrement on the
// trip's live seat counter in the same transaction as the ticket insert,
// so an oversell makes the UPDATE match zero rows and the whole purchase
// rolls back.
func CreateTicketBooking(db *sqlx.DB, momo services.MomoClient, sms services.SMSSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req CreateTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}
		if req.BusTripID == "" {
			utils.RespondValidationError(w, map[string]string{"bus_trip_id": "bus_trip_id is required"})
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

		// Serialization point: one purchase transaction per bus trip
		var trip models.BusTrip
		err = tx.Get(&trip, "SELECT * FROM bus_trips WHERE id = $1 FOR UPDATE", req.BusTripID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Bus trip not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.Status != models.BusTripStatusActive {
			utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Bus trip is not active")
			return
		}

		departure, err := trip.Departure()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Trip schedule is invalid")
			return
		}
		if err := models.CheckTicketBookingWindow(departure, time.Now()); err != nil {
			if errors.Is(err, models.ErrTripDeparted) {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Bus trip has already departed")
			} else {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Ticket sales close 2 hours before departure")
			}
			return
		}

		// One live ticket per passenger per bus trip
		var existing int
		err = tx.Get(&existing, `
			SELECT COUNT(*) FROM ticket_bookings
			WHERE bus_trip_id = $1 AND user_id = $2 AND status = ANY($3)`,
			trip.ID, userClaims.UserID, pq.Array(models.TicketLiveStatuses()),
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if existing > 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "You already have a ticket for this bus trip")
			return
		}

		// No double-booking the same departure slot across bus trips
		var overlapping int
		err = tx.Get(&overlapping, `
			SELECT COUNT(*) FROM ticket_bookings tb
			JOIN bus_trips bt ON bt.id = tb.bus_trip_id
			WHERE tb.user_id = $1 AND tb.status = ANY($2)
			AND bt.trip_date = $3 AND bt.trip_time = $4`,
			userClaims.UserID, pq.Array(models.TicketLiveStatuses()), trip.TripDate, trip.TripTime,
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if overlapping > 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "You already have a ticket for another bus trip at this time")
			return
		}

		// Conditional decrement doubles as the availability check
		res, err := tx.Exec(`
			UPDATE bus_trips SET available_seats = available_seats - $1, updated_at = $2
			WHERE id = $3 AND available_seats >= $1`,
			req.Seats, time.Now().Unix(), trip.ID,
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
				fmt.Sprintf("Only %d seat(s) left on this bus trip", trip.AvailableSeats))
			return
		}

		now := time.Now().Unix()
		ticket := models.TicketBooking{
			ID:        uuid.New().String(),
			BusTripID: trip.ID,
			UserID:    userClaims.UserID,
			Seats:     req.Seats,
			Status:    models.TicketStatusConfirmed,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = tx.Exec(`
			INSERT INTO ticket_bookings (id, bus_trip_id, user_id, seats, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			ticket.ID, ticket.BusTripID, ticket.UserID, ticket.Seats,
			ticket.Status, ticket.CreatedAt, ticket.UpdatedAt,
		)
		if err != nil {
			log.Printf("❌ Failed to insert ticket booking: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		metrics.TicketsSold.Inc()
		log.Printf("✅ Ticket sold: %s (%d seats on bus trip %s)", ticket.ID, ticket.Seats, trip.ID)

		go func() {
			amount := trip.Price * ticket.Seats
			txID, err := momo.RequestPayment(userClaims.Phone, amount, ticket.ID)
			if err != nil {
				log.Printf("⚠️  MoMo request failed for ticket %s: %v", ticket.ID, err)
				return
			}
			if _, err := db.Exec("UPDATE ticket_bookings SET momo_transaction_id = $1, updated_at = $2 WHERE id = $3",
				txID, time.Now().Unix(), ticket.ID); err != nil {
				log.Printf("⚠️  Failed to record MoMo transaction for ticket %s: %v", ticket.ID, err)
			}
			sms.Send(userClaims.Phone, fmt.Sprintf(
				"Ticket confirmed: %s %s → %s on %s %s, %d seat(s). Show this SMS when boarding.",
				trip.AgencyName, trip.DepartCity, trip.DestinationCity, trip.TripDate, trip.TripTime, ticket.Seats))
		}()

		utils.RespondData(w, http.StatusCreated, ticket)
	}
}

// CancelTicketBooking cancels a ticket at least 24 hours before departure,
// returning the seats to the trip's counter in the same transaction.
func CancelTicketBooking(db *sqlx.DB, momo services.MomoClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		ticketID := chi.URLParam(r, "id")

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var ticket models.TicketBooking
		err = tx.Get(&ticket, "SELECT * FROM ticket_bookings WHERE id = $1 FOR UPDATE", ticketID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Ticket not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if ticket.UserID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the ticket's owner may cancel it")
			return
		}
		if ticket.Status != models.TicketStatusConfirmed {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
				fmt.Sprintf("Ticket is %s, only CONFIRMED tickets can be cancelled", ticket.Status))
			return
		}

		var trip models.BusTrip
		if err := tx.Get(&trip, "SELECT * FROM bus_trips WHERE id = $1", ticket.BusTripID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		departure, err := trip.Departure()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Trip schedule is invalid")
			return
		}
		if err := models.CheckTicketCancelWindow(departure, time.Now()); err != nil {
			if errors.Is(err, models.ErrTripDeparted) {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Bus trip has already departed")
			} else {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Tickets can only be cancelled up to 24 hours before departure")
			}
			return
		}

		ticket.Status = models.TicketStatusCancelled
		ticket.UpdatedAt = time.Now().Unix()
		if _, err := tx.Exec("UPDATE ticket_bookings SET status = $1, updated_at = $2 WHERE id = $3",
			ticket.Status, ticket.UpdatedAt, ticket.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		// Seats go back to the pool, capped at the posted capacity
		if _, err := tx.Exec(`
			UPDATE bus_trips
			SET available_seats = LEAST(available_seats + $1, total_seats), updated_at = $2
			WHERE id = $3`,
			ticket.Seats, time.Now().Unix(), trip.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		metrics.TicketsCancelled.Inc()
		log.Printf("✅ Ticket cancelled: %s by passenger %s", ticket.ID, userClaims.UserID)

		if ticket.MomoTransactionID != nil {
			go func(txID string) {
				if err := momo.Refund(txID); err != nil {
					log.Printf("⚠️  MoMo refund failed for ticket %s: %v", ticket.ID, err)
				}
			}(*ticket.MomoTransactionID)
		}

		utils.RespondData(w, http.StatusOK, ticket)
	}
}

// TicketWithTrip joins a ticket with its bus trip for listings
type TicketWithTrip struct {
	models.TicketBooking
	AgencyName      string `json:"agency_name" db:"agency_name"`
	DepartCity      string `json:"depart_city" db:"depart_city"`
	DestinationCity string `json:"destination_city" db:"destination_city"`
	TripDate        string `json:"date" db:"trip_date"`
	TripTime        string `json:"time" db:"trip_time"`
	Price           int    `json:"price" db:"price"`
}

// GetMyTickets lists the caller's tickets, newest first
func GetMyTickets(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var tickets []TicketWithTrip
		err := db.Select(&tickets, `
			SELECT tb.*, bt.agency_name, bt.depart_city, bt.destination_city, bt.trip_date, bt.trip_time, bt.price
			FROM ticket_bookings tb
			JOIN bus_trips bt ON bt.id = tb.bus_trip_id
			WHERE tb.user_id = $1
			ORDER BY tb.created_at DESC`,
			userClaims.UserID,
		)
		if err != nil {
			log.Printf("❌ Failed to list tickets: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, tickets)
	}
}

// GetBusTripTickets lists tickets sold on a bus trip for its agency
func GetBusTripTickets(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var trip models.BusTrip
		err := db.Get(&trip, "SELECT * FROM bus_trips WHERE id = $1", chi.URLParam(r, "id"))
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Bus trip not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.AgencyID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the owning agency may view this trip's tickets")
			return
		}

		var tickets []models.TicketBooking
		if err := db.Select(&tickets, "SELECT * FROM ticket_bookings WHERE bus_trip_id = $1 ORDER BY created_at ASC", trip.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, tickets)
	}
}
