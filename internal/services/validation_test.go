package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/bankbook/backend/internal/models"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid use request", func(t *testing.T) {
		valid := models.UseBalanceRequest{
			UserID:        1,
			AccountNumber: "1000000000",
			Amount:        500,
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("invalid account number", func(t *testing.T) {
		invalid := models.UseBalanceRequest{
			UserID:        1,
			AccountNumber: "12345", // not ten digits
			Amount:        500,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "AccountNumber", validationErrors[0].Field())
		assert.Equal(t, "len", validationErrors[0].Tag())
	})

	t.Run("amount over the per-transaction cap", func(t *testing.T) {
		invalid := models.UseBalanceRequest{
			UserID:        1,
			AccountNumber: "1000000000",
			Amount:        1000000001,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Amount", validationErrors[0].Field())
		assert.Equal(t, "max", validationErrors[0].Tag())
	})

	t.Run("cancel requires the full external id", func(t *testing.T) {
		invalid := models.CancelBalanceRequest{
			TransactionID: "short",
			AccountNumber: "1000000000",
			Amount:        500,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Equal(t, "TransactionID", validationErrors[0].Field())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation details", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&models.UseBalanceRequest{})
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.NotEmpty(t, response.Details)
		assert.Contains(t, response.Details, "AccountNumber")
	})
}

func TestWriteDomainError(t *testing.T) {
	t.Run("domain error carries its code and status", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteDomainError(w, NewLedgerError(BalanceNotEmpty))

		assert.Equal(t, http.StatusConflict, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, string(BalanceNotEmpty), response.Code)
		assert.NotEmpty(t, response.Error)
	})

	t.Run("unexpected error maps to 500", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteDomainError(w, errors.New("connection reset"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Empty(t, response.Code)
	})
}
