package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
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
)

// bookingThread resolves a booking and the two user IDs allowed to see its
// chat thread: the passenger and the trip's driver.
func bookingThread(db sqlx.Queryer, bookingID string) (*models.Booking, string, error) {
	var row struct {
		models.Booking
		DriverID string `db:"driver_id"`
	}
	err := sqlx.Get(db, &row, `
		SELECT b.*, t.driver_id
		FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		WHERE b.id = $1`,
		bookingID,
	)
	if err != nil {
		return nil, "", err
	}
	return &row.Booking, row.DriverID, nil
}

// GetBookingMessages returns the chat thread for a booking. Only the
// passenger and the driver may read it, and only while the booking is
// CONFIRMED or COMPLETED.
func GetBookingMessages(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		booking, driverID, err := bookingThread(db, chi.URLParam(r, "id"))
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Booking not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if userClaims.UserID != booking.UserID && userClaims.UserID != driverID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "You are not a participant of this conversation")
			return
		}
		if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusCompleted {
			utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Chat opens once the booking is confirmed")
			return
		}

		var messages []models.Message
		if err := db.Select(&messages, "SELECT * FROM messages WHERE booking_id = $1 ORDER BY created_at ASC", booking.ID); err != nil {
			log.Printf("❌ Failed to list messages: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, messages)
	}
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

// SendBookingMessage posts a message to a booking's chat thread. Writes
// are allowed only while the booking is CONFIRMED; once the trip is
// completed the thread becomes read-only.
func SendBookingMessage(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}
		req.Body = strings.TrimSpace(req.Body)
		if req.Body == "" {
			utils.RespondValidationError(w, map[string]string{"body": "message body is required"})
			return
		}
		if len(req.Body) > models.MaxMessageLength {
			utils.RespondValidationError(w, map[string]string{"body": "message is too long"})
			return
		}

		booking, driverID, err := bookingThread(db, chi.URLParam(r, "id"))
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Booking not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if userClaims.UserID != booking.UserID && userClaims.UserID != driverID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "You are not a participant of this conversation")
			return
		}
		if booking.Status != models.BookingStatusConfirmed {
			utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Messages can only be sent while the booking is confirmed")
			return
		}

		message := models.Message{
			ID:        uuid.New().String(),
			BookingID: booking.ID,
			SenderID:  userClaims.UserID,
			Body:      req.Body,
			CreatedAt: time.Now().Unix(),
		}

		_, err = db.Exec(`
			INSERT INTO messages (id, booking_id, sender_id, body, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			message.ID, message.BookingID, message.SenderID, message.Body, message.CreatedAt,
		)
		if err != nil {
			log.Printf("❌ Failed to insert message: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		metrics.MessagesSent.Inc()

		recipient := booking.UserID
		if userClaims.UserID == booking.UserID {
			recipient = driverID
		}

		var senderName string
		if err := db.Get(&senderName, "SELECT name FROM users WHERE id = $1", userClaims.UserID); err != nil {
			senderName = userClaims.Phone
		}

		preview := utils.TruncateRunes(message.Body, 80)
		go pushEvent(db, hub, recipient,
			chatEvent{Type: "chat_message", Message: &message},
			fcmChatMessage(fcm, booking.ID, senderName, preview))

		utils.RespondData(w, http.StatusCreated, message)
	}
}
