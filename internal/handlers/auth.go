package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"tugende-backend/internal/metrics"
	"tugende-backend/internal/middleware"
	"tugende-backend/internal/models"
	"tugende-backend/internal/services"
	"tugende-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type RequestOTPRequest struct {
	Phone string `json:"phone"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool                 `json:"success"`
	Token   string               `json:"token,omitempty"`
	User    *models.UserResponse `json:"user,omitempty"`
}

// generateToken signs a week-long JWT for the user
func generateToken(user *models.User) (string, error) {
	jwtSecret := os.Getenv("APP_JWT_SECRET")
	if jwtSecret == "" {
		return "", errors.New("APP_JWT_SECRET not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"phone":   user.Phone,
		"role":    user.Role,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	return token.SignedString([]byte(jwtSecret))
}

// RequestOTP sends a one-time login code to a Rwandan phone number.
// The response never reveals whether the phone belongs to an account.
func RequestOTP(otp *services.OTPStore, sms services.SMSSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RequestOTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}

		phone, err := utils.NormalizePhone(req.Phone)
		if err != nil {
			utils.RespondValidationError(w, map[string]string{"phone": err.Error()})
			return
		}

		code, err := otp.Issue(r.Context(), phone)
		if err != nil {
			if errors.Is(err, services.ErrOTPTooSoon) {
				utils.RespondError(w, http.StatusTooManyRequests, utils.CodeConflict, "A code was sent recently, try again in a minute")
				return
			}
			log.Printf("❌ Failed to issue OTP: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to send code")
			return
		}

		// Fire-and-forget; SMS delivery is not a correctness dependency
		go sms.Send(phone, services.OTPMessage(code))

		log.Printf("📨 OTP issued for %s", phone)
		utils.RespondData(w, http.StatusOK, map[string]interface{}{"phone": phone})
	}
}

// VerifyOTP exchanges a correct code for a JWT, creating the user on first
// login.
func VerifyOTP(db *sqlx.DB, otp *services.OTPStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyOTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}

		phone, err := utils.NormalizePhone(req.Phone)
		if err != nil {
			utils.RespondValidationError(w, map[string]string{"phone": err.Error()})
			return
		}

		if err := otp.Verify(r.Context(), phone, req.Code); err != nil {
			switch {
			case errors.Is(err, services.ErrOTPNotFound), errors.Is(err, services.ErrOTPMismatch), errors.Is(err, services.ErrOTPMaxAttempts):
				utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Invalid or expired code")
			default:
				log.Printf("❌ OTP verify failed: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Verification failed")
			}
			return
		}

		var user models.User
		err = db.Get(&user, "SELECT * FROM users WHERE phone = $1", phone)
		if err == sql.ErrNoRows {
			// First login creates the account
			now := time.Now().Unix()
			user = models.User{
				ID:            uuid.New().String(),
				Phone:         phone,
				Role:          models.RolePassenger,
				PhoneVerified: true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			_, err = db.Exec(`
				INSERT INTO users (id, phone, name, role, phone_verified, created_at, updated_at)
				VALUES ($1, $2, '', $3, TRUE, $4, $5)`,
				user.ID, user.Phone, user.Role, now, now,
			)
			if err != nil {
				log.Printf("❌ Failed to create user: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to create account")
				return
			}
			log.Printf("🆕 New user registered: %s", phone)
		} else if err != nil {
			log.Printf("❌ Failed to load user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		} else if !user.PhoneVerified {
			if _, err := db.Exec("UPDATE users SET phone_verified = TRUE, updated_at = $1 WHERE id = $2", time.Now().Unix(), user.ID); err != nil {
				log.Printf("❌ Failed to mark phone verified: %v", err)
			}
			user.PhoneVerified = true
		}

		tokenString, err := generateToken(&user)
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to create token")
			return
		}

		metrics.LoginsTotal.WithLabelValues("otp").Inc()
		log.Printf("✅ Login successful: %s (%s)", user.Phone, user.Role)

		userResponse := user.ToUserResponse()
		utils.RespondJSON(w, http.StatusOK, AuthResponse{Success: true, Token: tokenString, User: &userResponse})
	}
}

// Login authenticates staff accounts (admin, super_admin, agency) with
// email and password.
func Login(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE email = $1", req.Email); err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Invalid credentials")
			return
		}

		if !models.IsStaff(user.Role) || user.Password == nil {
			log.Printf("❌ Password login not available for role %s", user.Role)
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Invalid credentials")
			return
		}

		tokenString, err := generateToken(&user)
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to create token")
			return
		}

		metrics.LoginsTotal.WithLabelValues("password").Inc()
		log.Printf("✅ Login successful: %s (%s)", req.Email, user.Role)

		userResponse := user.ToUserResponse()
		utils.RespondJSON(w, http.StatusOK, AuthResponse{Success: true, Token: tokenString, User: &userResponse})
	}
}

// GetAuthStatus returns the resolved identity plus a fresh user row
func GetAuthStatus(db *sqlx.DB) http.HandlerFunc {
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
