package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, 409, CodeConflict, "Trip is fully booked")

	if rec.Code != 409 {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["success"] != false {
		t.Fatal("success should be false")
	}
	if body["code"] != CodeConflict {
		t.Fatalf("code = %v, want %s", body["code"], CodeConflict)
	}
	if body["error"] != "Trip is fully booked" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestRespondValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondValidationError(rec, map[string]string{"seats": "seats must be between 1 and 4"})

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body struct {
		Success bool              `json:"success"`
		Code    string            `json:"code"`
		Fields  map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Code != CodeValidation {
		t.Fatalf("code = %q", body.Code)
	}
	if body.Fields["seats"] == "" {
		t.Fatal("fields should carry the per-field message")
	}
}

func TestRespondData(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondData(rec, 201, map[string]string{"id": "abc"})

	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.Success {
		t.Fatal("success should be true")
	}
	if body.Data["id"] != "abc" {
		t.Fatalf("data = %v", body.Data)
	}
}
