package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	"tugende-backend/pkg/utils"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// NewFCMServiceFromBase64 creates a new FCM service instance from
// base64-encoded credentials. Useful for cloud deployments where you can't
// upload files easily.
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	ctx := context.Background()

	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}

	opt := option.WithCredentialsJSON(credentialsJSON)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

func (s *FCMService) send(message *messaging.Message) error {
	ctx := context.Background()
	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}
	log.Printf("✅ FCM message sent: %s", response)
	return nil
}

// SendBookingRequestNotification tells a driver a new booking is waiting
// for confirmation.
func (s *FCMService) SendBookingRequestNotification(token, bookingID string, seats int) error {
	return s.send(&messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "New booking request",
			Body:  fmt.Sprintf("A passenger requested %d seat(s) on your trip.", seats),
		},
		Data: map[string]string{
			"type":       "booking_request",
			"booking_id": bookingID,
			"seats":      strconv.Itoa(seats),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
}

// SendBookingStatusNotification tells a passenger their booking was
// confirmed or cancelled.
func (s *FCMService) SendBookingStatusNotification(token, bookingID, status string) error {
	return s.send(&messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "Booking update",
			Body:  fmt.Sprintf("Your booking is now %s.", status),
		},
		Data: map[string]string{
			"type":       "booking_status",
			"booking_id": bookingID,
			"status":     status,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
}

// SendChatMessageNotification tells a user they received a chat message.
func (s *FCMService) SendChatMessageNotification(token, bookingID, senderName, preview string) error {
	preview = utils.TruncateRunes(preview, 77)
	return s.send(&messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: senderName,
			Body:  preview,
		},
		Data: map[string]string{
			"type":       "chat_message",
			"booking_id": bookingID,
		},
	})
}

// SendVerificationDecisionNotification tells a driver the outcome of a
// verification review.
func (s *FCMService) SendVerificationDecisionNotification(token, submissionID, status string) error {
	body := "Your driver verification was updated."
	switch status {
	case "APPROVED":
		body = "Your driver verification was approved. You can now post trips!"
	case "REJECTED":
		body = "Your driver verification was rejected. Open the app for details."
	case "CHANGES_REQUESTED":
		body = "Your driver verification needs changes. Open the app for details."
	}
	return s.send(&messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "Driver verification",
			Body:  body,
		},
		Data: map[string]string{
			"type":          "verification_decision",
			"submission_id": submissionID,
			"status":        status,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
}
