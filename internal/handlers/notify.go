package handlers

import (
	"log"

	"tugende-backend/internal/models"
	"tugende-backend/internal/services"
	"tugende-backend/internal/websocket"

	"github.com/jmoiron/sqlx"
)

// pushEvent delivers an event to the user's open socket if connected,
// otherwise via FCM to every registered device. Delivery is best-effort;
// failures are logged, never surfaced to the caller.
func pushEvent(db *sqlx.DB, hub *websocket.Hub, userID string, event interface{}, fcmSend func(token string) error) {
	if hub != nil && hub.SendToUser(userID, event) {
		return
	}

	if fcmSend == nil {
		return
	}

	var tokens []models.FCMToken
	if err := db.Select(&tokens, "SELECT * FROM fcm_tokens WHERE user_id = $1", userID); err != nil {
		log.Printf("❌ Failed to load FCM tokens for %s: %v", userID, err)
		return
	}

	for _, t := range tokens {
		if err := fcmSend(t.Token); err != nil {
			log.Printf("⚠️  FCM send failed for %s: %v", userID, err)
		}
	}
}

// bookingEvent is the websocket payload for booking lifecycle changes
type bookingEvent struct {
	Type    string          `json:"type"`
	Booking *models.Booking `json:"booking"`
}

// chatEvent is the websocket payload for new chat messages
type chatEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

// verificationEvent is the websocket payload for review decisions
type verificationEvent struct {
	Type         string `json:"type"`
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

// fcmBookingStatus adapts the FCM client to the pushEvent callback shape.
// A nil service yields a nil callback, which pushEvent treats as "skip".
func fcmBookingStatus(fcm *services.FCMService, bookingID, status string) func(string) error {
	if fcm == nil {
		return nil
	}
	return func(token string) error {
		return fcm.SendBookingStatusNotification(token, bookingID, status)
	}
}

func fcmBookingRequest(fcm *services.FCMService, bookingID string, seats int) func(string) error {
	if fcm == nil {
		return nil
	}
	return func(token string) error {
		return fcm.SendBookingRequestNotification(token, bookingID, seats)
	}
}

func fcmChatMessage(fcm *services.FCMService, bookingID, senderName, preview string) func(string) error {
	if fcm == nil {
		return nil
	}
	return func(token string) error {
		return fcm.SendChatMessageNotification(token, bookingID, senderName, preview)
	}
}

func fcmVerificationDecision(fcm *services.FCMService, submissionID, status string) func(string) error {
	if fcm == nil {
		return nil
	}
	return func(token string) error {
		return fcm.SendVerificationDecisionNotification(token, submissionID, status)
	}
}
