package models

import (
	"testing"
	"time"
)

func str(s string) *string { return &s }

func completeSubmission() DriverVerificationSubmission {
	return DriverVerificationSubmission{
		ID:                    "sub-1",
		UserID:                "user-1",
		Version:               1,
		Status:                VerificationStatusDraft,
		FullName:              str("Jean Bosco Mugisha"),
		Phone:                 str("+250788123456"),
		DateOfBirth:           str("1990-05-14"),
		NationalIDNumber:      str("1199080012345678"),
		VehicleMake:           str("Toyota"),
		VehicleModel:          str("Corolla"),
		VehicleYear:           str("2018"),
		VehicleColor:          str("Silver"),
		LicensePlate:          str("RAD 123 A"),
		DrivingLicenseNumber:  str("DL-2020-4567"),
		NationalIDFrontPath:   str("user-1/sub-1/id_front.jpg"),
		NationalIDBackPath:    str("user-1/sub-1/id_back.jpg"),
		LicenseFrontPath:      str("user-1/sub-1/license_front.jpg"),
		LicenseBackPath:       str("user-1/sub-1/license_back.jpg"),
		YellowCardPath:        str("user-1/sub-1/yellow_card.pdf"),
		InsurancePath:         str("user-1/sub-1/insurance.pdf"),
		VehiclePhotoFrontPath: str("user-1/sub-1/car_front.jpg"),
		VehiclePhotoRearPath:  str("user-1/sub-1/car_rear.jpg"),
	}
}

func TestMissingRequiredFieldsComplete(t *testing.T) {
	s := completeSubmission()
	if missing := s.MissingRequiredFields(); len(missing) != 0 {
		t.Errorf("complete submission reports missing fields: %v", missing)
	}
}

func TestMissingRequiredFieldsSidePhotoOptional(t *testing.T) {
	s := completeSubmission()
	s.VehiclePhotoSidePath = nil
	if missing := s.MissingRequiredFields(); len(missing) != 0 {
		t.Errorf("side photo must be optional, got missing: %v", missing)
	}
}

func TestMissingRequiredFieldsListsLicenseBack(t *testing.T) {
	s := completeSubmission()
	s.LicenseBackPath = nil

	missing := s.MissingRequiredFields()
	found := false
	for _, f := range missing {
		if f == "license_back" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing license_back not reported, got %v", missing)
	}
}

func TestMissingRequiredFieldsEmptyString(t *testing.T) {
	s := completeSubmission()
	s.FullName = str("   ")
	missing := s.MissingRequiredFields()
	if len(missing) != 1 || missing[0] != "full_name" {
		t.Errorf("blank full_name not reported, got %v", missing)
	}
}

func TestIsReviewable(t *testing.T) {
	tests := []struct {
		status VerificationStatus
		want   bool
	}{
		{VerificationStatusDraft, false},
		{VerificationStatusSubmitted, true},
		{VerificationStatusInReview, true},
		{VerificationStatusChangesRequested, true},
		{VerificationStatusApproved, false},
		{VerificationStatusRejected, false},
	}
	for _, tt := range tests {
		s := DriverVerificationSubmission{Status: tt.status}
		if got := s.IsReviewable(); got != tt.want {
			t.Errorf("IsReviewable() with %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatusForReviewAction(t *testing.T) {
	tests := []struct {
		action  string
		want    VerificationStatus
		wantErr bool
	}{
		{ReviewActionStartReview, VerificationStatusInReview, false},
		{ReviewActionApprove, VerificationStatusApproved, false},
		{ReviewActionReject, VerificationStatusRejected, false},
		{ReviewActionChangesRequested, VerificationStatusChangesRequested, false},
		{"DELETE", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := StatusForReviewAction(tt.action)
		if tt.wantErr {
			if err == nil {
				t.Errorf("StatusForReviewAction(%q) accepted unknown action", tt.action)
			}
			continue
		}
		if err != nil {
			t.Errorf("StatusForReviewAction(%q) error: %v", tt.action, err)
			continue
		}
		if got != tt.want {
			t.Errorf("StatusForReviewAction(%q) = %s, want %s", tt.action, got, tt.want)
		}
	}
}

func TestReviewActionNeedsReason(t *testing.T) {
	if !ReviewActionNeedsReason(ReviewActionReject) {
		t.Error("REJECT must require a reason")
	}
	if !ReviewActionNeedsReason(ReviewActionChangesRequested) {
		t.Error("CHANGES_REQUESTED must require a reason")
	}
	if ReviewActionNeedsReason(ReviewActionApprove) {
		t.Error("APPROVE must not require a reason")
	}
	if ReviewActionNeedsReason(ReviewActionStartReview) {
		t.Error("START_REVIEW must not require a reason")
	}
}

func TestPersonalStepValidate(t *testing.T) {
	good := PersonalStepPayload{
		FullName:         "Jean Bosco",
		Phone:            "+250788123456",
		DateOfBirth:      "1990-05-14",
		NationalIDNumber: "11990800123456",
	}
	if fields := good.Validate(); len(fields) != 0 {
		t.Errorf("valid personal payload rejected: %v", fields)
	}

	bad := PersonalStepPayload{
		FullName:         "",
		DateOfBirth:      "14/05/1990",
		NationalIDNumber: "12345", // too short
	}
	fields := bad.Validate()
	for _, want := range []string{"full_name", "phone", "date_of_birth", "national_id_number"} {
		if _, ok := fields[want]; !ok {
			t.Errorf("expected field error for %s, got %v", want, fields)
		}
	}
}

func TestVehicleStepValidate(t *testing.T) {
	good := VehicleStepPayload{
		VehicleMake:          "Toyota",
		VehicleModel:         "Corolla",
		VehicleYear:          "2018",
		VehicleColor:         "Silver",
		LicensePlate:         "RAD 123 A",
		DrivingLicenseNumber: "DL-2020-4567",
	}
	if fields := good.Validate(); len(fields) != 0 {
		t.Errorf("valid vehicle payload rejected: %v", fields)
	}

	bad := VehicleStepPayload{
		VehicleYear:          "18",
		LicensePlate:         "!!",
		DrivingLicenseNumber: "this-license-number-is-way-too-long-to-accept",
	}
	fields := bad.Validate()
	for _, want := range []string{"vehicle_make", "vehicle_model", "vehicle_year", "vehicle_color", "license_plate", "driving_license_number"} {
		if _, ok := fields[want]; !ok {
			t.Errorf("expected field error for %s, got %v", want, fields)
		}
	}
}

func TestExpiryStepValidate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, KigaliTZ)

	good := ExpiryStepPayload{LicenseExpiry: "2027-01-01", InsuranceExpiry: "2026-12-31"}
	if fields := good.Validate(now); len(fields) != 0 {
		t.Errorf("valid expiry payload rejected: %v", fields)
	}

	expired := ExpiryStepPayload{LicenseExpiry: "2025-01-01", InsuranceExpiry: "not-a-date"}
	fields := expired.Validate(now)
	if _, ok := fields["license_expiry"]; !ok {
		t.Errorf("expired license accepted: %v", fields)
	}
	if _, ok := fields["insurance_expiry"]; !ok {
		t.Errorf("malformed insurance expiry accepted: %v", fields)
	}
}

func TestDocumentColumn(t *testing.T) {
	tests := []struct {
		docType string
		want    string
	}{
		{DocNationalIDFront, "national_id_front_path"},
		{DocLicenseBack, "license_back_path"},
		{DocYellowCard, "yellow_card_path"},
		{DocVehiclePhotoSide, "vehicle_photo_side_path"},
		{"passport", ""},
	}
	for _, tt := range tests {
		if got := DocumentColumn(tt.docType); got != tt.want {
			t.Errorf("DocumentColumn(%q) = %q, want %q", tt.docType, got, tt.want)
		}
	}
}

func TestAllowedDocumentContentType(t *testing.T) {
	tests := []struct {
		docType     string
		contentType string
		want        bool
	}{
		{DocNationalIDFront, "image/jpeg", true},
		{DocNationalIDFront, "image/png", true},
		{DocNationalIDFront, "application/pdf", false},
		{DocLicenseFront, "image/webp", true},
		{DocVehiclePhotoRear, "application/pdf", false},
		{DocYellowCard, "application/pdf", true},
		{DocYellowCard, "image/jpeg", true},
		{DocInsurance, "application/pdf", true},
		{DocInsurance, "text/plain", false},
		{DocNationalIDFront, "IMAGE/JPEG", true},
		{DocYellowCard, "application/pdf; charset=binary", true},
		{"passport", "image/jpeg", false},
	}
	for _, tt := range tests {
		if got := AllowedDocumentContentType(tt.docType, tt.contentType); got != tt.want {
			t.Errorf("AllowedDocumentContentType(%q, %q) = %v, want %v", tt.docType, tt.contentType, got, tt.want)
		}
	}
}

func TestOpenSubmissionStatuses(t *testing.T) {
	open := map[string]bool{}
	for _, s := range OpenSubmissionStatuses() {
		open[s] = true
	}

	tests := []struct {
		status     VerificationStatus
		blocksNext bool
	}{
		{VerificationStatusDraft, true},
		{VerificationStatusSubmitted, true},
		{VerificationStatusInReview, true},
		// CHANGES_REQUESTED must allow the next-version draft: the
		// reviewed row is no longer editable, so a blocked driver would
		// have no way to respond to the requested changes.
		{VerificationStatusChangesRequested, false},
		{VerificationStatusApproved, false},
		{VerificationStatusRejected, false},
	}

	for _, tt := range tests {
		if open[string(tt.status)] != tt.blocksNext {
			t.Errorf("%s: blocks new draft = %v, want %v", tt.status, open[string(tt.status)], tt.blocksNext)
		}
	}
}

func TestChangesRequestedIsNotEditableButNotTerminal(t *testing.T) {
	s := completeSubmission()
	s.Status = VerificationStatusChangesRequested

	if s.IsTerminal() {
		t.Error("CHANGES_REQUESTED should not be terminal")
	}
	if !s.IsReviewable() {
		t.Error("CHANGES_REQUESTED should still be reviewable")
	}
	// The reviewed row stays frozen; the driver's response is a new
	// version, which OpenSubmissionStatuses must permit.
	for _, open := range OpenSubmissionStatuses() {
		if open == string(VerificationStatusChangesRequested) {
			t.Error("CHANGES_REQUESTED must not count as an open submission")
		}
	}
}
