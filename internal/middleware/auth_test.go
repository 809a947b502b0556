package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-do-not-use"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": "user-1",
		"phone":   "+250788123456",
		"role":    "passenger",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func TestParseToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	claims, err := ParseToken(signToken(t, validClaims()))
	if err != nil {
		t.Fatalf("ParseToken rejected a valid token: %v", err)
	}
	if claims.UserID != "user-1" || claims.Phone != "+250788123456" || claims.Role != "passenger" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenExpired(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	c := validClaims()
	c["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := ParseToken(signToken(t, c)); err == nil {
		t.Error("expired token accepted")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "a-different-secret")

	if _, err := ParseToken(signToken(t, validClaims())); err == nil {
		t.Error("token signed with wrong secret accepted")
	}
}

func TestParseTokenMissingIdentity(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	c := validClaims()
	delete(c, "user_id")
	if _, err := ParseToken(signToken(t, c)); err == nil {
		t.Error("token without user_id accepted")
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	var gotClaims UserClaims
	handler := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid bearer token", "Bearer " + signToken(t, validClaims()), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	if gotClaims.UserID != "user-1" {
		t.Errorf("claims not propagated to handler: %+v", gotClaims)
	}
}

func TestRequireRole(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)

	handler := Auth(RequireRole("admin", "super_admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	tests := []struct {
		role       string
		wantStatus int
	}{
		{"admin", http.StatusOK},
		{"super_admin", http.StatusOK},
		{"passenger", http.StatusForbidden},
		{"driver", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			c := validClaims()
			c["role"] = tt.role
			req := httptest.NewRequest(http.MethodPost, "/api/admin/verifications", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, c))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("role %s: status = %d, want %d", tt.role, rec.Code, tt.wantStatus)
			}
		})
	}
}
