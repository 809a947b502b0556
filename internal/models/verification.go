package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// VerificationStatus represents the state of a driver verification
// submission
type VerificationStatus string

const (
	VerificationStatusDraft            VerificationStatus = "DRAFT"
	VerificationStatusSubmitted        VerificationStatus = "SUBMITTED"
	VerificationStatusInReview         VerificationStatus = "IN_REVIEW"
	VerificationStatusChangesRequested VerificationStatus = "CHANGES_REQUESTED"
	VerificationStatusApproved         VerificationStatus = "APPROVED"
	VerificationStatusRejected         VerificationStatus = "REJECTED"
)

// Review actions an admin can take on a submission
const (
	ReviewActionStartReview      = "START_REVIEW"
	ReviewActionApprove          = "APPROVE"
	ReviewActionReject           = "REJECT"
	ReviewActionChangesRequested = "CHANGES_REQUESTED"

	// Written by the driver themself when submitting; the only non-admin
	// audit entry.
	AuditActionSubmitted = "SUBMITTED"
)

// Verification steps a driver fills in while the submission is a DRAFT
const (
	StepPersonal = "personal"
	StepVehicle  = "vehicle"
	StepExpiry   = "expiry"
)

// Document types accepted by the upload endpoint
const (
	DocNationalIDFront   = "national_id_front"
	DocNationalIDBack    = "national_id_back"
	DocLicenseFront      = "license_front"
	DocLicenseBack       = "license_back"
	DocYellowCard        = "yellow_card"
	DocInsurance         = "insurance"
	DocVehiclePhotoFront = "vehicle_photo_front"
	DocVehiclePhotoRear  = "vehicle_photo_rear"
	DocVehiclePhotoSide  = "vehicle_photo_side"
)

// MaxDocumentSize is the upload size cap for verification documents.
const MaxDocumentSize = 5 << 20 // 5MB

// DriverVerificationSubmission is one versioned attempt at driver
// verification. A new draft gets a fresh row with version = max+1; review
// outcomes never rewrite earlier versions.
type DriverVerificationSubmission struct {
	ID      string             `json:"id" db:"id"`
	UserID  string             `json:"user_id" db:"user_id"`
	Version int                `json:"version" db:"version"`
	Status  VerificationStatus `json:"status" db:"status"`

	FullName         *string `json:"full_name" db:"full_name"`
	Phone            *string `json:"phone" db:"phone"`
	DateOfBirth      *string `json:"date_of_birth" db:"date_of_birth"`
	NationalIDNumber *string `json:"national_id_number" db:"national_id_number"`

	VehicleMake          *string `json:"vehicle_make" db:"vehicle_make"`
	VehicleModel         *string `json:"vehicle_model" db:"vehicle_model"`
	VehicleYear          *string `json:"vehicle_year" db:"vehicle_year"`
	VehicleColor         *string `json:"vehicle_color" db:"vehicle_color"`
	LicensePlate         *string `json:"license_plate" db:"license_plate"`
	DrivingLicenseNumber *string `json:"driving_license_number" db:"driving_license_number"`

	LicenseExpiry   *string `json:"license_expiry" db:"license_expiry"`
	InsuranceExpiry *string `json:"insurance_expiry" db:"insurance_expiry"`

	NationalIDFrontPath   *string `json:"national_id_front_path" db:"national_id_front_path"`
	NationalIDBackPath    *string `json:"national_id_back_path" db:"national_id_back_path"`
	LicenseFrontPath      *string `json:"license_front_path" db:"license_front_path"`
	LicenseBackPath       *string `json:"license_back_path" db:"license_back_path"`
	YellowCardPath        *string `json:"yellow_card_path" db:"yellow_card_path"`
	InsurancePath         *string `json:"insurance_path" db:"insurance_path"`
	VehiclePhotoFrontPath *string `json:"vehicle_photo_front_path" db:"vehicle_photo_front_path"`
	VehiclePhotoRearPath  *string `json:"vehicle_photo_rear_path" db:"vehicle_photo_rear_path"`
	VehiclePhotoSidePath  *string `json:"vehicle_photo_side_path" db:"vehicle_photo_side_path"`

	RejectionReason *string `json:"rejection_reason" db:"rejection_reason"`
	ReviewedBy      *string `json:"reviewed_by" db:"reviewed_by"`
	ReviewedAt      *int64  `json:"reviewed_at" db:"reviewed_at"`
	SubmittedAt     *int64  `json:"submitted_at" db:"submitted_at"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// VerificationAuditLog is one append-only review-trail entry. Rows are
// only ever inserted.
type VerificationAuditLog struct {
	ID           int     `json:"id" db:"id"`
	SubmissionID string  `json:"submission_id" db:"submission_id"`
	AdminID      string  `json:"admin_id" db:"admin_id"`
	Action       string  `json:"action" db:"action"`
	Reason       *string `json:"reason" db:"reason"`
	CreatedAt    int64   `json:"created_at" db:"created_at"`
}

// DocumentColumn maps a document type to the submission column holding its
// stored path. Unknown types return "".
func DocumentColumn(docType string) string {
	switch docType {
	case DocNationalIDFront:
		return "national_id_front_path"
	case DocNationalIDBack:
		return "national_id_back_path"
	case DocLicenseFront:
		return "license_front_path"
	case DocLicenseBack:
		return "license_back_path"
	case DocYellowCard:
		return "yellow_card_path"
	case DocInsurance:
		return "insurance_path"
	case DocVehiclePhotoFront:
		return "vehicle_photo_front_path"
	case DocVehiclePhotoRear:
		return "vehicle_photo_rear_path"
	case DocVehiclePhotoSide:
		return "vehicle_photo_side_path"
	default:
		return ""
	}
}

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// AllowedDocumentContentType reports whether contentType is acceptable for
// docType. ID faces, license faces and vehicle photos must be images;
// yellow card and insurance certificates may also be PDFs.
func AllowedDocumentContentType(docType, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch docType {
	case DocYellowCard, DocInsurance:
		return imageContentTypes[ct] || ct == "application/pdf"
	case DocNationalIDFront, DocNationalIDBack, DocLicenseFront, DocLicenseBack,
		DocVehiclePhotoFront, DocVehiclePhotoRear, DocVehiclePhotoSide:
		return imageContentTypes[ct]
	default:
		return false
	}
}

var (
	nationalIDPattern = regexp.MustCompile(`^\d{14,16}$`)
	platePattern      = regexp.MustCompile(`^[A-Z0-9 ]{4,10}$`)
	licenseNoPattern  = regexp.MustCompile(`^[A-Z0-9\-]{4,20}$`)
	yearPattern       = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// PersonalStepPayload carries the fields of the "personal" step
type PersonalStepPayload struct {
	FullName         string `json:"full_name"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"date_of_birth"`
	NationalIDNumber string `json:"national_id_number"`
}

// Validate checks the personal step against its schema. Only fields of
// this step are validated; other steps may still be incomplete.
func (p *PersonalStepPayload) Validate() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(p.FullName) == "" {
		fields["full_name"] = "full name is required"
	}
	if strings.TrimSpace(p.Phone) == "" {
		fields["phone"] = "phone is required"
	}
	if _, err := time.Parse(TripDateLayout, p.DateOfBirth); err != nil {
		fields["date_of_birth"] = "date of birth must be YYYY-MM-DD"
	}
	if !nationalIDPattern.MatchString(p.NationalIDNumber) {
		fields["national_id_number"] = "national ID must be 14-16 digits"
	}
	return fields
}

// VehicleStepPayload carries the fields of the "vehicle" step
type VehicleStepPayload struct {
	VehicleMake          string `json:"vehicle_make"`
	VehicleModel         string `json:"vehicle_model"`
	VehicleYear          string `json:"vehicle_year"`
	VehicleColor         string `json:"vehicle_color"`
	LicensePlate         string `json:"license_plate"`
	DrivingLicenseNumber string `json:"driving_license_number"`
}

func (p *VehicleStepPayload) Validate() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(p.VehicleMake) == "" {
		fields["vehicle_make"] = "vehicle make is required"
	}
	if strings.TrimSpace(p.VehicleModel) == "" {
		fields["vehicle_model"] = "vehicle model is required"
	}
	if !yearPattern.MatchString(p.VehicleYear) {
		fields["vehicle_year"] = "vehicle year must be a 4-digit year"
	}
	if strings.TrimSpace(p.VehicleColor) == "" {
		fields["vehicle_color"] = "vehicle color is required"
	}
	if !platePattern.MatchString(strings.ToUpper(strings.TrimSpace(p.LicensePlate))) {
		fields["license_plate"] = "license plate must be 4-10 letters/digits"
	}
	if !licenseNoPattern.MatchString(strings.ToUpper(strings.TrimSpace(p.DrivingLicenseNumber))) {
		fields["driving_license_number"] = "driving license number must be 4-20 letters/digits"
	}
	return fields
}

// ExpiryStepPayload carries the fields of the "expiry" step
type ExpiryStepPayload struct {
	LicenseExpiry   string `json:"license_expiry"`
	InsuranceExpiry string `json:"insurance_expiry"`
}

func (p *ExpiryStepPayload) Validate(now time.Time) map[string]string {
	fields := map[string]string{}
	for name, val := range map[string]string{
		"license_expiry":   p.LicenseExpiry,
		"insurance_expiry": p.InsuranceExpiry,
	} {
		d, err := time.ParseInLocation(TripDateLayout, val, KigaliTZ)
		if err != nil {
			fields[name] = "expiry date must be YYYY-MM-DD"
			continue
		}
		if !d.After(now) {
			fields[name] = "document has expired"
		}
	}
	return fields
}

// MissingRequiredFields returns the names of required fields and documents
// that are still empty, in a stable order. An empty result means the
// submission is ready to submit. The side vehicle photo is optional.
func (s *DriverVerificationSubmission) MissingRequiredFields() []string {
	required := []struct {
		name  string
		value *string
	}{
		{"full_name", s.FullName},
		{"phone", s.Phone},
		{"date_of_birth", s.DateOfBirth},
		{"national_id_number", s.NationalIDNumber},
		{"vehicle_make", s.VehicleMake},
		{"vehicle_model", s.VehicleModel},
		{"vehicle_year", s.VehicleYear},
		{"vehicle_color", s.VehicleColor},
		{"license_plate", s.LicensePlate},
		{"driving_license_number", s.DrivingLicenseNumber},
		{"national_id_front", s.NationalIDFrontPath},
		{"national_id_back", s.NationalIDBackPath},
		{"license_front", s.LicenseFrontPath},
		{"license_back", s.LicenseBackPath},
		{"yellow_card", s.YellowCardPath},
		{"insurance", s.InsurancePath},
		{"vehicle_photo_front", s.VehiclePhotoFrontPath},
		{"vehicle_photo_rear", s.VehiclePhotoRearPath},
	}

	var missing []string
	for _, f := range required {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// OpenSubmissionStatuses returns the statuses that block opening a new
// draft. CHANGES_REQUESTED is not among them: the driver answers it by
// starting the next version.
func OpenSubmissionStatuses() []string {
	return []string{
		string(VerificationStatusDraft),
		string(VerificationStatusSubmitted),
		string(VerificationStatusInReview),
	}
}

// IsReviewable reports whether an admin may act on the submission in its
// current status.
func (s *DriverVerificationSubmission) IsReviewable() bool {
	switch s.Status {
	case VerificationStatusSubmitted, VerificationStatusInReview, VerificationStatusChangesRequested:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the submission can no longer change status.
func (s *DriverVerificationSubmission) IsTerminal() bool {
	return s.Status == VerificationStatusApproved || s.Status == VerificationStatusRejected
}

// StatusForReviewAction resolves a review action to the resulting status.
// Returns an error for unknown actions.
func StatusForReviewAction(action string) (VerificationStatus, error) {
	switch action {
	case ReviewActionStartReview:
		return VerificationStatusInReview, nil
	case ReviewActionApprove:
		return VerificationStatusApproved, nil
	case ReviewActionReject:
		return VerificationStatusRejected, nil
	case ReviewActionChangesRequested:
		return VerificationStatusChangesRequested, nil
	default:
		return "", fmt.Errorf("unknown review action %q", action)
	}
}

// ReviewActionNeedsReason reports whether the action requires a reason.
// APPROVE and START_REVIEW do not; REJECT and CHANGES_REQUESTED do.
func ReviewActionNeedsReason(action string) bool {
	return action == ReviewActionReject || action == ReviewActionChangesRequested
}
