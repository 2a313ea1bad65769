package models

import "time"

// Transaction types and results
const (
	TransactionTypeUse    = "USE"
	TransactionTypeCancel = "CANCEL"

	TransactionResultSuccess = "SUCCESS"
	TransactionResultFail    = "FAIL"
)

// Transaction records one balance-affecting event. Records are immutable once
// written; corrections happen through new CANCEL transactions.
type Transaction struct {
	ID                int64     `json:"id" db:"id"`
	TransactionType   string    `json:"transaction_type" db:"transaction_type"`
	TransactionResult string    `json:"transaction_result" db:"transaction_result"`
	AccountID         int64     `json:"account_id" db:"account_id"`
	Amount            int64     `json:"amount" db:"amount"`
	BalanceSnapshot   int64     `json:"balance_snapshot" db:"balance_snapshot"`
	TransactionID     string    `json:"transaction_id" db:"transaction_id"`
	TransactedAt      time.Time `json:"transacted_at" db:"transacted_at"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// UseBalanceRequest represents the balance-use request payload
// @Description Balance use request structure
type UseBalanceRequest struct {
	UserID        int64  `json:"userId" validate:"required,min=1" example:"1"`
	AccountNumber string `json:"accountNumber" validate:"required,len=10,numeric" example:"1000000000"`
	Amount        int64  `json:"amount" validate:"required,gt=0,max=1000000000" example:"1000"`
}

// CancelBalanceRequest represents the balance-cancel request payload
// @Description Balance cancel request structure
type CancelBalanceRequest struct {
	TransactionID string `json:"transactionId" validate:"required,len=32" example:"c2033bb6d82a4250aecf7e27d49793d9"`
	AccountNumber string `json:"accountNumber" validate:"required,len=10,numeric" example:"1000000000"`
	Amount        int64  `json:"amount" validate:"required,gt=0,max=1000000000" example:"1000"`
}

// TransactionResponse is the external view of a transaction record.
// TransactionType is only populated on lookups; use/cancel responses omit it.
type TransactionResponse struct {
	AccountNumber     string    `json:"accountNumber"`
	TransactionType   string    `json:"transactionType,omitempty"`
	TransactionResult string    `json:"transactionResult"`
	TransactionID     string    `json:"transactionId"`
	Amount            int64     `json:"amount"`
	TransactedAt      time.Time `json:"transactedAt"`
}

// TransactionEvent is pushed to the transaction event queue after commit
type TransactionEvent struct {
	TransactionID   string    `json:"transaction_id"`
	AccountNumber   string    `json:"account_number"`
	TransactionType string    `json:"transaction_type"`
	Amount          int64     `json:"amount"`
	BalanceSnapshot int64     `json:"balance_snapshot"`
	TransactedAt    time.Time `json:"transacted_at"`
}
