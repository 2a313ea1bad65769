package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Code    string            `json:"code,omitempty"`    // Machine-readable error code
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// WriteDomainError renders a LedgerError with its mapped status, or a generic
// 500 for storage failures that carry no domain code.
func WriteDomainError(w http.ResponseWriter, err error) {
	if le, ok := AsLedgerError(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(le.HTTPStatus())
		json.NewEncoder(w).Encode(ErrorResponse{Error: le.Message, Code: string(le.Code)})
		return
	}

	log.Printf("[LEDGER] Unexpected error: %v", err)
	SendErrorResponse(w, "Failed to process request", http.StatusInternalServerError, nil)
}
