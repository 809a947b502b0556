package models

// User roles
const (
	RolePassenger  = "passenger"
	RoleDriver     = "driver"
	RoleAgency     = "agency"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

type User struct {
	ID            string  `json:"id" db:"id"`
	Phone         string  `json:"phone" db:"phone"`
	Email         *string `json:"email" db:"email"`
	Password      *string `json:"-" db:"password"` // Never return password in JSON
	Name          string  `json:"name" db:"name"`
	Role          string  `json:"role" db:"role"`
	PhoneVerified bool    `json:"phone_verified" db:"phone_verified"`

	// Legacy verification fields, back-filled when a submission is approved.
	// Kept for consumers that predate the versioned submission model.
	DriverVerified       bool    `json:"driver_verified" db:"driver_verified"`
	NationalID           *string `json:"national_id,omitempty" db:"national_id"`
	DrivingLicenseNumber *string `json:"driving_license_number,omitempty" db:"driving_license_number"`
	LicensePlate         *string `json:"license_plate,omitempty" db:"license_plate"`

	ProfilePhotoPath *string `json:"profile_photo_path" db:"profile_photo_path"`
	CreatedAt        int64   `json:"created_at" db:"created_at"`
	UpdatedAt        int64   `json:"updated_at" db:"updated_at"`
}

type UserResponse struct {
	ID             string  `json:"id"`
	Phone          string  `json:"phone"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	PhoneVerified  bool    `json:"phone_verified"`
	DriverVerified bool    `json:"driver_verified"`
	ProfilePhoto   *string `json:"profile_photo_path"`
	CreatedAt      int64   `json:"created_at"`
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:             u.ID,
		Phone:          u.Phone,
		Name:           u.Name,
		Role:           u.Role,
		PhoneVerified:  u.PhoneVerified,
		DriverVerified: u.DriverVerified,
		ProfilePhoto:   u.ProfilePhotoPath,
		CreatedAt:      u.CreatedAt,
	}
}

// IsStaff reports whether the role signs in with email+password rather
// than phone OTP.
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin || role == RoleAgency
}

// IsAdminRole reports whether the role can review verification submissions.
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// FCMToken represents a Firebase Cloud Messaging token for a user
type FCMToken struct {
	ID         int    `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios" or "android"
	CreatedAt  int64  `json:"created_at" db:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at"`
}
