package services

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func errNoRows() error {
	return sql.ErrNoRows
}

func assertLedgerError(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	le, ok := AsLedgerError(err)
	assert.True(t, ok, "expected domain error, got %v", err)
	if ok {
		assert.Equal(t, code, le.Code)
	}
}

func TestLedgerError_HTTPStatus(t *testing.T) {
	cases := []struct {
		code   ErrorCode
		status int
	}{
		{UserNotFound, http.StatusNotFound},
		{AccountNotFound, http.StatusNotFound},
		{TransactionNotFound, http.StatusNotFound},
		{UserAccountMismatch, http.StatusForbidden},
		{TransactionAccountMismatch, http.StatusForbidden},
		{AccountAlreadyUnregistered, http.StatusConflict},
		{AccountAlreadyClosed, http.StatusConflict},
		{BalanceNotEmpty, http.StatusConflict},
		{AmountExceedsBalance, http.StatusConflict},
		{CancelMustBeFull, http.StatusConflict},
		{TransactionTooOldToCancel, http.StatusConflict},
		{MaxAccountsExceeded, http.StatusConflict},
		{InvalidRequest, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.status, NewLedgerError(tc.code).HTTPStatus())
		})
	}
}

func TestAsLedgerError(t *testing.T) {
	t.Run("direct domain error", func(t *testing.T) {
		le, ok := AsLedgerError(NewLedgerError(AmountExceedsBalance))
		assert.True(t, ok)
		assert.Equal(t, AmountExceedsBalance, le.Code)
	})

	t.Run("wrapped domain error", func(t *testing.T) {
		wrapped := fmt.Errorf("use balance: %w", NewLedgerError(UserNotFound))
		le, ok := AsLedgerError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, UserNotFound, le.Code)
	})

	t.Run("plain error", func(t *testing.T) {
		_, ok := AsLedgerError(errors.New("boom"))
		assert.False(t, ok)
	})
}
