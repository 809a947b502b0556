package utils

import (
	"encoding/json"
	"net/http"
)

// Stable machine-checkable error codes. Clients branch on these, never on
// the human-readable message.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeConflict        = "CONFLICT"
	CodePolicyViolation = "POLICY_VIOLATION"
	CodeNotImplemented  = "NOT_IMPLEMENTED"
	CodeInternal        = "INTERNAL"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError sends an error response with a stable code
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, map[string]interface{}{
		"success": false,
		"code":    code,
		"error":   message,
	})
}

// RespondValidationError sends a VALIDATION_ERROR with itemized field messages
func RespondValidationError(w http.ResponseWriter, fields map[string]string) {
	RespondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"code":    CodeValidation,
		"error":   "Validation failed",
		"fields":  fields,
	})
}

// RespondData sends a success envelope wrapping data
func RespondData(w http.ResponseWriter, status int, data interface{}) {
	RespondJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
