package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp       time.Time `json:"timestamp"`
	EventType       string    `json:"event_type"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	AccountNumber   string    `json:"account_number,omitempty"`
	Amount          int64     `json:"amount,omitempty"`
	BalanceSnapshot int64     `json:"balance_snapshot,omitempty"`
	Status          string    `json:"status"`
	Details         any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

// LogTransaction records a committed balance-affecting event.
func (a *Logger) LogTransaction(transactionID, accountNumber, transactionType string, amount, balanceSnapshot int64) {
	a.log(Event{
		Timestamp:       time.Now(),
		EventType:       transactionType,
		TransactionID:   transactionID,
		AccountNumber:   accountNumber,
		Amount:          amount,
		BalanceSnapshot: balanceSnapshot,
		Status:          "SUCCESS",
	})
}

// LogRejected records a validation failure on a use/cancel attempt.
func (a *Logger) LogRejected(accountNumber, transactionType string, amount int64, err error) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     transactionType,
		AccountNumber: accountNumber,
		Amount:        amount,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

// LogAccountChange records an account lifecycle event (open/close).
func (a *Logger) LogAccountChange(accountNumber, operation string, details string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     operation,
		AccountNumber: accountNumber,
		Status:        "SUCCESS",
		Details:       map[string]string{"details": details},
	})
}

func (a *Logger) log(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[AUDIT] Failed to marshal audit event: %v", err)
		return
	}
	log.Printf("[AUDIT] %s", data)
}
