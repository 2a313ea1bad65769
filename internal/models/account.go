package models

import "time"

// Account status values
const (
	AccountStatusActive = "ACTIVE"
	AccountStatusClosed = "CLOSED"
)

// Account represents a single user-owned ledger account. Balance is held in
// the smallest currency unit and never goes negative.
type Account struct {
	ID             int64      `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	AccountNumber  string     `json:"account_number" db:"account_number"`
	Status         string     `json:"status" db:"status"`
	Balance        int64      `json:"balance" db:"balance"`
	RegisteredAt   time.Time  `json:"registered_at" db:"registered_at"`
	UnregisteredAt *time.Time `json:"unregistered_at,omitempty" db:"unregistered_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// OpenAccountRequest represents the account-open request payload
// @Description Account open request structure
type OpenAccountRequest struct {
	UserID         int64 `json:"userId" validate:"required,min=1" example:"1"`
	InitialBalance int64 `json:"initialBalance" validate:"min=0" example:"10000"`
}

// CloseAccountRequest represents the account-close request payload
// @Description Account close request structure
type CloseAccountRequest struct {
	UserID        int64  `json:"userId" validate:"required,min=1" example:"1"`
	AccountNumber string `json:"accountNumber" validate:"required,len=10,numeric" example:"1000000000"`
}

// OpenAccountResponse is returned after a successful account open
type OpenAccountResponse struct {
	UserID        int64     `json:"userId"`
	AccountNumber string    `json:"accountNumber"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

// CloseAccountResponse is returned after a successful account close
type CloseAccountResponse struct {
	UserID         int64     `json:"userId"`
	AccountNumber  string    `json:"accountNumber"`
	UnregisteredAt time.Time `json:"unregisteredAt"`
}

// AccountSummary is one element of the per-user account listing
type AccountSummary struct {
	AccountNumber string `json:"accountNumber"`
	Balance       int64  `json:"balance"`
}
