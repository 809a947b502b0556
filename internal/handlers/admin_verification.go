package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
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
	"github.com/jmoiron/sqlx"
)

var reviewQueueStatuses = map[string]bool{
	string(models.VerificationStatusSubmitted):        true,
	string(models.VerificationStatusInReview):         true,
	string(models.VerificationStatusChangesRequested): true,
	string(models.VerificationStatusApproved):         true,
	string(models.VerificationStatusRejected):         true,
}

// ListVerificationSubmissions returns the admin review queue, optionally
// filtered by status. Drafts are never listed; they belong to the driver
// until submitted.
func ListVerificationSubmissions(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")

		query := `
			SELECT * FROM driver_verification_submissions
			WHERE status != 'DRAFT'`
		args := []interface{}{}

		if status != "" {
			if !reviewQueueStatuses[status] {
				utils.RespondValidationError(w, map[string]string{"status": fmt.Sprintf("unknown status %q", status)})
				return
			}
			args = append(args, status)
			query += " AND status = $1"
		}
		query += " ORDER BY submitted_at ASC NULLS LAST"

		var subs []models.DriverVerificationSubmission
		if err := db.Select(&subs, query, args...); err != nil {
			log.Printf("❌ Failed to list submissions: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, subs)
	}
}

// GetVerificationSubmission returns one submission with its audit trail
func GetVerificationSubmission(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub models.DriverVerificationSubmission
		err := db.Get(&sub, "SELECT * FROM driver_verification_submissions WHERE id = $1", chi.URLParam(r, "id"))
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Submission not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		var trail []models.VerificationAuditLog
		if err := db.Select(&trail, `
			SELECT * FROM verification_audit_logs
			WHERE submission_id = $1 ORDER BY created_at ASC, id ASC`, sub.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, map[string]interface{}{
			"submission": sub,
			"audit_log":  trail,
		})
	}
}

type ReviewRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ReviewVerificationSubmission applies one admin action to a submission:
// START_REVIEW, APPROVE, REJECT or CHANGES_REQUESTED. The status change
// and the audit entry commit together; APPROVE also promotes the user to
// a verified driver in the same transaction.
func ReviewVerificationSubmission(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req ReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}
		req.Reason = strings.TrimSpace(req.Reason)

		newStatus, err := models.StatusForReviewAction(req.Action)
		if err != nil {
			utils.RespondValidationError(w, map[string]string{"action": err.Error()})
			return
		}
		if models.ReviewActionNeedsReason(req.Action) && req.Reason == "" {
			utils.RespondValidationError(w, map[string]string{"reason": "a reason is required for this action"})
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var sub models.DriverVerificationSubmission
		err = tx.Get(&sub, "SELECT * FROM driver_verification_submissions WHERE id = $1 FOR UPDATE", chi.URLParam(r, "id"))
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Submission not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if !sub.IsReviewable() {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
				fmt.Sprintf("Submission is %s and cannot be reviewed", sub.Status))
			return
		}

		now := time.Now().Unix()
		var reason *string
		if req.Reason != "" {
			reason = &req.Reason
		}

		if _, err := tx.Exec(`
			UPDATE driver_verification_submissions
			SET status = $1, reviewed_by = $2, reviewed_at = $3, rejection_reason = $4, updated_at = $3
			WHERE id = $5`,
			newStatus, adminClaims.UserID, now, reason, sub.ID); err != nil {
			log.Printf("❌ Failed to update submission: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if _, err := tx.Exec(`
			INSERT INTO verification_audit_logs (submission_id, admin_id, action, reason, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			sub.ID, adminClaims.UserID, req.Action, reason, now); err != nil {
			log.Printf("❌ Failed to write audit entry: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		// Approval promotes the user and copies the verified identity
		// fields onto their profile
		if newStatus == models.VerificationStatusApproved {
			if _, err := tx.Exec(`
				UPDATE users
				SET role = 'driver', driver_verified = TRUE,
					national_id = $1, driving_license_number = $2, license_plate = $3, updated_at = $4
				WHERE id = $5`,
				sub.NationalIDNumber, sub.DrivingLicenseNumber, sub.LicensePlate, now, sub.UserID); err != nil {
				log.Printf("❌ Failed to promote user %s: %v", sub.UserID, err)
				utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
				return
			}
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		metrics.VerificationDecisions.WithLabelValues(req.Action).Inc()
		log.Printf("✅ Verification %s: submission %s by admin %s", req.Action, sub.ID, adminClaims.UserID)

		sub.Status = newStatus
		sub.ReviewedBy = &adminClaims.UserID
		sub.ReviewedAt = &now
		sub.RejectionReason = reason
		sub.UpdatedAt = now

		// Drivers only hear about decisions, not the review starting
		if req.Action != models.ReviewActionStartReview {
			reasonText := ""
			if reason != nil {
				reasonText = *reason
			}
			go pushEvent(db, hub, sub.UserID,
				verificationEvent{Type: "verification_decision", SubmissionID: sub.ID, Status: string(newStatus), Reason: reasonText},
				fcmVerificationDecision(fcm, sub.ID, string(newStatus)))
		}

		utils.RespondData(w, http.StatusOK, sub)
	}
}
