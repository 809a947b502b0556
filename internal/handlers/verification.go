package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"tugende-backend/internal/middleware"
	"tugende-backend/internal/models"
	"tugende-backend/internal/storage"
	"tugende-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// CreateVerificationDraft opens a new versioned verification attempt for
// the caller, prefilled with their profile name and phone. Only one open
// submission (DRAFT, SUBMITTED or IN_REVIEW) may exist at a time; a fresh
// draft is allowed as the very first attempt, after a REJECTED outcome,
// and after CHANGES_REQUESTED, which the driver answers with the next
// version.
func CreateVerificationDraft(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var user models.User
		if err := tx.Get(&user, "SELECT * FROM users WHERE id = $1", userClaims.UserID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if user.DriverVerified {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "You are already a verified driver")
			return
		}

		var open int
		err = tx.Get(&open, `
			SELECT COUNT(*) FROM driver_verification_submissions
			WHERE user_id = $1 AND status = ANY($2)`,
			userClaims.UserID, pq.Array(models.OpenSubmissionStatuses()),
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if open > 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "You already have a verification attempt in progress")
			return
		}

		var version int
		if err := tx.Get(&version, `
			SELECT COALESCE(MAX(version), 0) + 1 FROM driver_verification_submissions
			WHERE user_id = $1`, userClaims.UserID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		now := time.Now().Unix()
		sub := models.DriverVerificationSubmission{
			ID:        uuid.New().String(),
			UserID:    userClaims.UserID,
			Version:   version,
			Status:    models.VerificationStatusDraft,
			FullName:  &user.Name,
			Phone:     &user.Phone,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = tx.Exec(`
			INSERT INTO driver_verification_submissions
				(id, user_id, version, status, full_name, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sub.ID, sub.UserID, sub.Version, sub.Status, sub.FullName, sub.Phone,
			sub.CreatedAt, sub.UpdatedAt,
		)
		if err != nil {
			log.Printf("❌ Failed to create verification draft: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		log.Printf("✅ Verification draft created: %s (user %s, version %d)", sub.ID, sub.UserID, sub.Version)
		utils.RespondData(w, http.StatusCreated, sub)
	}
}

// GetCurrentSubmission returns the caller's latest verification attempt
func GetCurrentSubmission(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var sub models.DriverVerificationSubmission
		err := db.Get(&sub, `
			SELECT * FROM driver_verification_submissions
			WHERE user_id = $1 ORDER BY version DESC LIMIT 1`,
			userClaims.UserID,
		)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "No verification submission yet")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, sub)
	}
}

// loadOwnDraft fetches a submission and checks it belongs to userID and is
// still a DRAFT. Writes the error response itself and returns nil on
// failure.
func loadOwnDraft(tx *sqlx.Tx, w http.ResponseWriter, submissionID, userID string) *models.DriverVerificationSubmission {
	var sub models.DriverVerificationSubmission
	err := tx.Get(&sub, "SELECT * FROM driver_verification_submissions WHERE id = $1 FOR UPDATE", submissionID)
	if err == sql.ErrNoRows {
		utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Submission not found")
		return nil
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
		return nil
	}
	if sub.UserID != userID {
		utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Not your submission")
		return nil
	}
	if sub.Status != models.VerificationStatusDraft {
		utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
			fmt.Sprintf("Submission is %s, only drafts can be edited", sub.Status))
		return nil
	}
	return &sub
}

// SaveVerificationStep writes one step of a draft submission. Each step
// validates only its own fields so drivers can fill the form in any order.
func SaveVerificationStep(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		step := chi.URLParam(r, "step")

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		sub := loadOwnDraft(tx, w, chi.URLParam(r, "id"), userClaims.UserID)
		if sub == nil {
			return
		}

		now := time.Now().Unix()

		switch step {
		case models.StepPersonal:
			var p models.PersonalStepPayload
			if err := json.Unmarshal(body, &p); err != nil {
				utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
				return
			}
			if fields := p.Validate(); len(fields) > 0 {
				utils.RespondValidationError(w, fields)
				return
			}
			phone, perr := utils.NormalizePhone(p.Phone)
			if perr != nil {
				utils.RespondValidationError(w, map[string]string{"phone": perr.Error()})
				return
			}
			_, err = tx.Exec(`
				UPDATE driver_verification_submissions
				SET full_name = $1, phone = $2, date_of_birth = $3, national_id_number = $4, updated_at = $5
				WHERE id = $6`,
				strings.TrimSpace(p.FullName), phone, p.DateOfBirth, p.NationalIDNumber, now, sub.ID,
			)
		case models.StepVehicle:
			var p models.VehicleStepPayload
			if err := json.Unmarshal(body, &p); err != nil {
				utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
				return
			}
			if fields := p.Validate(); len(fields) > 0 {
				utils.RespondValidationError(w, fields)
				return
			}
			_, err = tx.Exec(`
				UPDATE driver_verification_submissions
				SET vehicle_make = $1, vehicle_model = $2, vehicle_year = $3, vehicle_color = $4,
					license_plate = $5, driving_license_number = $6, updated_at = $7
				WHERE id = $8`,
				strings.TrimSpace(p.VehicleMake), strings.TrimSpace(p.VehicleModel), p.VehicleYear,
				strings.TrimSpace(p.VehicleColor),
				strings.ToUpper(strings.TrimSpace(p.LicensePlate)),
				strings.ToUpper(strings.TrimSpace(p.DrivingLicenseNumber)), now, sub.ID,
			)
		case models.StepExpiry:
			var p models.ExpiryStepPayload
			if err := json.Unmarshal(body, &p); err != nil {
				utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
				return
			}
			if fields := p.Validate(time.Now()); len(fields) > 0 {
				utils.RespondValidationError(w, fields)
				return
			}
			_, err = tx.Exec(`
				UPDATE driver_verification_submissions
				SET license_expiry = $1, insurance_expiry = $2, updated_at = $3
				WHERE id = $4`,
				p.LicenseExpiry, p.InsuranceExpiry, now, sub.ID,
			)
		default:
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound,
				fmt.Sprintf("Unknown step %q", step))
			return
		}

		if err != nil {
			log.Printf("❌ Failed to save verification step %s: %v", step, err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		var updated models.DriverVerificationSubmission
		if err := db.Get(&updated, "SELECT * FROM driver_verification_submissions WHERE id = $1", sub.ID); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, updated)
	}
}

// UploadVerificationDocument stores one document on a draft submission.
// Size and content type are checked per document type before anything
// touches disk.
func UploadVerificationDocument(db *sqlx.DB, store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		docType := chi.URLParam(r, "docType")
		column := models.DocumentColumn(docType)
		if column == "" {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound,
				fmt.Sprintf("Unknown document type %q", docType))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, models.MaxDocumentSize+4096)
		if err := r.ParseMultipartForm(models.MaxDocumentSize); err != nil {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, utils.CodeValidation, "Document exceeds the 5MB limit")
			return
		}

		file, header, err := r.FormFile("document")
		if err != nil {
			utils.RespondValidationError(w, map[string]string{"document": "document file is required"})
			return
		}
		defer file.Close()

		if header.Size > models.MaxDocumentSize {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, utils.CodeValidation, "Document exceeds the 5MB limit")
			return
		}
		contentType := header.Header.Get("Content-Type")
		if !models.AllowedDocumentContentType(docType, contentType) {
			utils.RespondValidationError(w, map[string]string{
				"document": fmt.Sprintf("content type %q is not accepted for %s", contentType, docType),
			})
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to read upload")
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		sub := loadOwnDraft(tx, w, chi.URLParam(r, "id"), userClaims.UserID)
		if sub == nil {
			return
		}

		key := fmt.Sprintf("%s/%s/%s_%s", sub.UserID, sub.ID, docType, sanitizeFilename(header.Filename))
		path, err := store.Save(key, data)
		if err != nil {
			log.Printf("❌ Failed to store document %s: %v", key, err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to store document")
			return
		}

		// column comes from DocumentColumn's fixed mapping, never from input
		query := fmt.Sprintf("UPDATE driver_verification_submissions SET %s = $1, updated_at = $2 WHERE id = $3", column)
		if _, err := tx.Exec(query, path, time.Now().Unix(), sub.ID); err != nil {
			log.Printf("❌ Failed to record document path: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		log.Printf("✅ Document uploaded: %s on submission %s", docType, sub.ID)
		utils.RespondData(w, http.StatusOK, map[string]string{
			"doc_type": docType,
			"path":     path,
		})
	}
}

// SubmitVerification moves a complete draft to SUBMITTED and writes the
// first audit-trail entry in the same transaction.
func SubmitVerification(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		sub := loadOwnDraft(tx, w, chi.URLParam(r, "id"), userClaims.UserID)
		if sub == nil {
			return
		}

		if missing := sub.MissingRequiredFields(); len(missing) > 0 {
			fields := make(map[string]string, len(missing))
			for _, name := range missing {
				fields[name] = "required"
			}
			utils.RespondValidationError(w, fields)
			return
		}

		now := time.Now().Unix()
		if _, err := tx.Exec(`
			UPDATE driver_verification_submissions
			SET status = $1, submitted_at = $2, updated_at = $2
			WHERE id = $3`,
			models.VerificationStatusSubmitted, now, sub.ID); err != nil {
			log.Printf("❌ Failed to submit verification: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if _, err := tx.Exec(`
			INSERT INTO verification_audit_logs (submission_id, admin_id, action, created_at)
			VALUES ($1, $2, $3, $4)`,
			sub.ID, userClaims.UserID, models.AuditActionSubmitted, now); err != nil {
			log.Printf("❌ Failed to write audit entry: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		log.Printf("✅ Verification submitted: %s (user %s, version %d)", sub.ID, sub.UserID, sub.Version)

		sub.Status = models.VerificationStatusSubmitted
		sub.SubmittedAt = &now
		sub.UpdatedAt = now
		utils.RespondData(w, http.StatusOK, sub)
	}
}

// GetVerificationDocument streams a stored document back to its owner (or
// any admin reviewing the submission).
func GetVerificationDocument(db *sqlx.DB, store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		docType := chi.URLParam(r, "docType")
		column := models.DocumentColumn(docType)
		if column == "" {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound,
				fmt.Sprintf("Unknown document type %q", docType))
			return
		}

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

		if sub.UserID != userClaims.UserID && !models.IsAdminRole(userClaims.Role) {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Not your submission")
			return
		}

		path := documentPath(&sub, docType)
		if path == nil || *path == "" {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Document not uploaded")
			return
		}

		data, err := store.Read(*path)
		if err != nil {
			log.Printf("❌ Failed to read document %s: %v", *path, err)
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Document not found in storage")
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

// documentPath extracts the stored path for docType from a submission
func documentPath(s *models.DriverVerificationSubmission, docType string) *string {
	switch docType {
	case models.DocNationalIDFront:
		return s.NationalIDFrontPath
	case models.DocNationalIDBack:
		return s.NationalIDBackPath
	case models.DocLicenseFront:
		return s.LicenseFrontPath
	case models.DocLicenseBack:
		return s.LicenseBackPath
	case models.DocYellowCard:
		return s.YellowCardPath
	case models.DocInsurance:
		return s.InsurancePath
	case models.DocVehiclePhotoFront:
		return s.VehiclePhotoFrontPath
	case models.DocVehiclePhotoRear:
		return s.VehiclePhotoRearPath
	case models.DocVehiclePhotoSide:
		return s.VehiclePhotoSidePath
	default:
		return nil
	}
}

// sanitizeFilename keeps uploads from smuggling path separators into
// storage keys
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "document"
	}
	return name
}
