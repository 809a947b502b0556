package handlers

import (
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

	"github.com/jmoiron/sqlx"
)

const maxProfilePhotoSize = 5 << 20 // 5MB

// GetMe returns the caller's profile
func GetMe(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE id = $1", userClaims.UserID); err != nil {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "User not found")
			return
		}

		utils.RespondData(w, http.StatusOK, user.ToUserResponse())
	}
}

type UpdateMeRequest struct {
	Name string `json:"name"`
}

// UpdateMe updates the caller's display name. The phone is the account's
// identity and cannot change here.
func UpdateMe(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req UpdateMeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" || len(name) > 100 {
			utils.RespondValidationError(w, map[string]string{"name": "name must be 1-100 characters"})
			return
		}

		var user models.User
		err := db.Get(&user, `
			UPDATE users SET name = $1, updated_at = $2 WHERE id = $3
			RETURNING *`,
			name, time.Now().Unix(), userClaims.UserID,
		)
		if err != nil {
			log.Printf("❌ Failed to update user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, user.ToUserResponse())
	}
}

// UploadProfilePhoto stores the caller's profile image at {userId}.{ext}
func UploadProfilePhoto(db *sqlx.DB, store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		if err := r.ParseMultipartForm(maxProfilePhotoSize); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid multipart form")
			return
		}

		file, header, err := r.FormFile("photo")
		if err != nil {
			utils.RespondValidationError(w, map[string]string{"photo": "photo file is required"})
			return
		}
		defer file.Close()

		if header.Size > maxProfilePhotoSize {
			utils.RespondValidationError(w, map[string]string{"photo": "photo must be at most 5MB"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		var ext string
		switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
		case "image/jpeg":
			ext = "jpg"
		case "image/png":
			ext = "png"
		case "image/webp":
			ext = "webp"
		default:
			utils.RespondValidationError(w, map[string]string{"photo": "photo must be JPEG, PNG or WebP"})
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, maxProfilePhotoSize+1))
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to read upload")
			return
		}
		if len(data) > maxProfilePhotoSize {
			utils.RespondValidationError(w, map[string]string{"photo": "photo must be at most 5MB"})
			return
		}

		key := fmt.Sprintf("%s.%s", userClaims.UserID, ext)
		path, err := store.Save(key, data)
		if err != nil {
			log.Printf("❌ Failed to store profile photo: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to store photo")
			return
		}

		if _, err := db.Exec("UPDATE users SET profile_photo_path = $1, updated_at = $2 WHERE id = $3",
			path, time.Now().Unix(), userClaims.UserID); err != nil {
			log.Printf("❌ Failed to record profile photo: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		log.Printf("🖼️  Profile photo updated for %s", userClaims.UserID)
		utils.RespondData(w, http.StatusOK, map[string]string{"profile_photo_path": path})
	}
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// RegisterFCMToken stores a device push token for the caller
func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req RegisterFCMTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}
		if req.Token == "" {
			utils.RespondValidationError(w, map[string]string{"token": "token is required"})
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" {
			req.DeviceType = "android"
		}

		now := time.Now().Unix()
		_, err := db.Exec(`
			INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (token) DO UPDATE SET user_id = $1, device_type = $3, updated_at = $5`,
			userClaims.UserID, req.Token, req.DeviceType, now, now,
		)
		if err != nil {
			log.Printf("❌ Failed to register FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, map[string]bool{"registered": true})
	}
}

// EraseMyData is the personal-data erasure endpoint. Bulk erasure is not
// implemented; this must be explicit rather than a silent no-op.
func EraseMyData() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotImplemented, utils.CodeNotImplemented,
			"Personal data erasure is not implemented yet. Contact support to delete your account.")
	}
}
