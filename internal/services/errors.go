package services

import (
	"errors"
	"net/http"
)

// ErrorCode identifies a ledger domain failure.
type ErrorCode string

const (
	UserNotFound               ErrorCode = "USER_NOT_FOUND"
	AccountNotFound            ErrorCode = "ACCOUNT_NOT_FOUND"
	TransactionNotFound        ErrorCode = "TRANSACTION_NOT_FOUND"
	UserAccountMismatch        ErrorCode = "USER_ACCOUNT_MISMATCH"
	TransactionAccountMismatch ErrorCode = "TRANSACTION_ACCOUNT_MISMATCH"
	AccountAlreadyUnregistered ErrorCode = "ACCOUNT_ALREADY_UNREGISTERED"
	AccountAlreadyClosed       ErrorCode = "ACCOUNT_ALREADY_CLOSED"
	BalanceNotEmpty            ErrorCode = "BALANCE_NOT_EMPTY"
	AmountExceedsBalance       ErrorCode = "AMOUNT_EXCEEDS_BALANCE"
	CancelMustBeFull           ErrorCode = "CANCEL_MUST_BE_FULL"
	TransactionTooOldToCancel  ErrorCode = "TRANSACTION_TOO_OLD_TO_CANCEL"
	MaxAccountsExceeded        ErrorCode = "MAX_ACCOUNTS_EXCEEDED"
	InvalidRequest             ErrorCode = "INVALID_REQUEST"
)

var errorMessages = map[ErrorCode]string{
	UserNotFound:               "user not found",
	AccountNotFound:            "account not found",
	TransactionNotFound:        "transaction not found",
	UserAccountMismatch:        "account is not owned by this user",
	TransactionAccountMismatch: "transaction does not belong to this account",
	AccountAlreadyUnregistered: "account is already unregistered",
	AccountAlreadyClosed:       "account is already closed",
	BalanceNotEmpty:            "account balance is not empty",
	AmountExceedsBalance:       "amount exceeds account balance",
	CancelMustBeFull:           "cancel amount must match the original transaction amount",
	TransactionTooOldToCancel:  "transaction is too old to cancel",
	MaxAccountsExceeded:        "user already has the maximum number of accounts",
	InvalidRequest:             "invalid request",
}

// LedgerError is the single error taxonomy for domain failures: a
// machine-readable code plus a human message. The boundary layer maps each
// code to an HTTP status.
type LedgerError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *LedgerError) Error() string {
	return e.Message
}

func NewLedgerError(code ErrorCode) *LedgerError {
	return &LedgerError{Code: code, Message: errorMessages[code]}
}

// AsLedgerError unwraps err into a *LedgerError when it carries one.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// HTTPStatus maps the error code to the status the boundary responds with.
func (e *LedgerError) HTTPStatus() int {
	switch e.Code {
	case UserNotFound, AccountNotFound, TransactionNotFound:
		return http.StatusNotFound
	case UserAccountMismatch, TransactionAccountMismatch:
		return http.StatusForbidden
	case AccountAlreadyUnregistered, AccountAlreadyClosed, BalanceNotEmpty,
		AmountExceedsBalance, CancelMustBeFull, TransactionTooOldToCancel,
		MaxAccountsExceeded:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
