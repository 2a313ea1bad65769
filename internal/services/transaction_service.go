package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/bankbook/backend/internal/audit"
	"github.com/bankbook/backend/internal/models"
)

const (
	// full reversal is only allowed within one year of the original transaction
	cancelWindowYears = 1

	transactionCacheTTL = 24 * time.Hour
	transactionEventKey = "transaction_events"
)

type TransactionService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	audit     *audit.Logger
}

func NewTransactionService(db *sql.DB, redisClient *redis.Client) *TransactionService {
	return &TransactionService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		audit:     audit.NewLogger(),
	}
}

// UseBalance debits an account balance
// @Summary Use balance
// @Description Debit an amount from an active account owned by the user
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body models.UseBalanceRequest true "Balance use request"
// @Success 200 {object} models.TransactionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /transactions/use [post]
func (ts *TransactionService) UseBalance(w http.ResponseWriter, r *http.Request) {
	var req models.UseBalanceRequest

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	record, err := ts.useBalance(req.UserID, req.AccountNumber, req.Amount)
	if err != nil {
		log.Printf("[TRANSACTION] Use rejected on account %s: %v", req.AccountNumber, err)
		ts.recordRejection(models.TransactionTypeUse, req.AccountNumber, req.Amount, err)
		WriteDomainError(w, err)
		return
	}

	log.Printf("[TRANSACTION] Use %s completed on account %s, amount %d", record.TransactionID, req.AccountNumber, req.Amount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.TransactionResponse{
		AccountNumber:     req.AccountNumber,
		TransactionResult: record.TransactionResult,
		TransactionID:     record.TransactionID,
		Amount:            record.Amount,
		TransactedAt:      record.TransactedAt,
	})
}

// CancelBalance reverses a prior use transaction in full
// @Summary Cancel balance use
// @Description Fully reverse a prior successful use, crediting the balance back
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body models.CancelBalanceRequest true "Balance cancel request"
// @Success 200 {object} models.TransactionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /transactions/cancel [post]
func (ts *TransactionService) CancelBalance(w http.ResponseWriter, r *http.Request) {
	var req models.CancelBalanceRequest

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	record, err := ts.cancelBalance(req.TransactionID, req.AccountNumber, req.Amount)
	if err != nil {
		log.Printf("[TRANSACTION] Cancel rejected on account %s: %v", req.AccountNumber, err)
		ts.recordRejection(models.TransactionTypeCancel, req.AccountNumber, req.Amount, err)
		WriteDomainError(w, err)
		return
	}

	log.Printf("[TRANSACTION] Cancel %s completed on account %s, amount %d", record.TransactionID, req.AccountNumber, req.Amount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.TransactionResponse{
		AccountNumber:     req.AccountNumber,
		TransactionResult: record.TransactionResult,
		TransactionID:     record.TransactionID,
		Amount:            record.Amount,
		TransactedAt:      record.TransactedAt,
	})
}

// GetTransaction retrieves a transaction by its external id
// @Summary Get transaction
// @Description Retrieve a transaction record by its external transaction id
// @Tags transactions
// @Produce json
// @Param transactionId path string true "External transaction ID"
// @Success 200 {object} models.TransactionResponse
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [get]
func (ts *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	record, err := ts.getTransaction(transactionID)
	if err != nil {
		log.Printf("[TRANSACTION] Lookup failed for %s: %v", transactionID, err)
		WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// useBalance validates and executes a debit as one atomic unit: the account
// row is locked, the balance mutation and the SUCCESS record commit together.
func (ts *TransactionService) useBalance(userID int64, accountNumber string, amount int64) (*models.Transaction, error) {
	tx, err := ts.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := findUserTx(tx, userID); err != nil {
		return nil, err
	}

	account, err := lockAccountByNumber(tx, accountNumber)
	if err != nil {
		return nil, err
	}

	if account.UserID != userID {
		return nil, NewLedgerError(UserAccountMismatch)
	}
	if account.Status != models.AccountStatusActive {
		return nil, NewLedgerError(AccountAlreadyUnregistered)
	}
	if amount > account.Balance {
		return nil, NewLedgerError(AmountExceedsBalance)
	}

	if err := debitBalance(tx, account, amount); err != nil {
		return nil, err
	}

	record, err := saveTransaction(tx, models.TransactionTypeUse, models.TransactionResultSuccess, account, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ts.audit.LogTransaction(record.TransactionID, accountNumber, models.TransactionTypeUse, amount, record.BalanceSnapshot)
	ts.publishEvent(record, accountNumber)
	return record, nil
}

// cancelBalance reverses a prior transaction: the cancel must name the same
// account, match the original amount exactly, and fall within the one-year
// window.
func (ts *TransactionService) cancelBalance(transactionID, accountNumber string, amount int64) (*models.Transaction, error) {
	tx, err := ts.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	original, err := findTransactionTx(tx, transactionID)
	if err != nil {
		return nil, err
	}

	account, err := lockAccountByNumber(tx, accountNumber)
	if err != nil {
		return nil, err
	}

	if original.AccountID != account.ID {
		return nil, NewLedgerError(TransactionAccountMismatch)
	}
	if original.Amount != amount {
		return nil, NewLedgerError(CancelMustBeFull)
	}
	if original.TransactedAt.Before(time.Now().AddDate(-cancelWindowYears, 0, 0)) {
		return nil, NewLedgerError(TransactionTooOldToCancel)
	}

	if err := creditBalance(tx, account, amount); err != nil {
		return nil, err
	}

	record, err := saveTransaction(tx, models.TransactionTypeCancel, models.TransactionResultSuccess, account, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ts.audit.LogTransaction(record.TransactionID, accountNumber, models.TransactionTypeCancel, amount, record.BalanceSnapshot)
	ts.publishEvent(record, accountNumber)
	return record, nil
}

// RecordFailedUse writes a USE/FAIL record against the account with the
// unchanged balance as snapshot. No balance mutation.
func (ts *TransactionService) RecordFailedUse(accountNumber string, amount int64) error {
	return ts.recordFailed(models.TransactionTypeUse, accountNumber, amount)
}

// RecordFailedCancel writes a CANCEL/FAIL record against the account.
func (ts *TransactionService) RecordFailedCancel(accountNumber string, amount int64) error {
	return ts.recordFailed(models.TransactionTypeCancel, accountNumber, amount)
}

func (ts *TransactionService) recordFailed(transactionType, accountNumber string, amount int64) error {
	tx, err := ts.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	account, err := lockAccountByNumber(tx, accountNumber)
	if err != nil {
		return err
	}

	if _, err := saveTransaction(tx, transactionType, models.TransactionResultFail, account, amount); err != nil {
		return err
	}

	return tx.Commit()
}

// recordRejection is the caller-side failure audit trail: every rejected
// use/cancel gets a FAIL record, except when the user or account itself could
// not be resolved.
func (ts *TransactionService) recordRejection(transactionType, accountNumber string, amount int64, cause error) {
	le, ok := AsLedgerError(cause)
	if !ok {
		return
	}
	switch le.Code {
	case UserNotFound, AccountNotFound, TransactionNotFound:
		return
	}

	ts.audit.LogRejected(accountNumber, transactionType, amount, cause)

	var err error
	if transactionType == models.TransactionTypeCancel {
		err = ts.RecordFailedCancel(accountNumber, amount)
	} else {
		err = ts.RecordFailedUse(accountNumber, amount)
	}
	if err != nil {
		log.Printf("[TRANSACTION] Failed to record rejected %s on account %s: %v", transactionType, accountNumber, err)
	}
}

func (ts *TransactionService) getTransaction(transactionID string) (*models.TransactionResponse, error) {
	cacheKey := "transaction:" + transactionID

	if ts.redis != nil {
		if data, err := ts.redis.Get(context.Background(), cacheKey).Result(); err == nil {
			var cached models.TransactionResponse
			if err := json.Unmarshal([]byte(data), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	record := &models.TransactionResponse{}
	err := ts.db.QueryRow(`
		SELECT t.transaction_type, t.transaction_result, t.amount, t.transaction_id, t.transacted_at, a.account_number
		FROM transactions t
		JOIN accounts a ON t.account_id = a.id
		WHERE t.transaction_id = $1`, transactionID).
		Scan(&record.TransactionType, &record.TransactionResult, &record.Amount,
			&record.TransactionID, &record.TransactedAt, &record.AccountNumber)
	if err == sql.ErrNoRows {
		return nil, NewLedgerError(TransactionNotFound)
	}
	if err != nil {
		return nil, err
	}

	// records are immutable once written, so caching is safe
	if ts.redis != nil {
		if data, err := json.Marshal(record); err == nil {
			if err := ts.redis.Set(context.Background(), cacheKey, data, transactionCacheTTL).Err(); err != nil {
				log.Printf("[TRANSACTION] Failed to cache transaction %s: %v", transactionID, err)
			}
		}
	}

	return record, nil
}

// debitBalance mutates the locked account row. The amount is re-checked at
// mutation time even though the engine validated it.
func debitBalance(tx *sql.Tx, account *models.Account, amount int64) error {
	if amount > account.Balance {
		return NewLedgerError(AmountExceedsBalance)
	}
	account.Balance -= amount
	return updateBalance(tx, account)
}

func creditBalance(tx *sql.Tx, account *models.Account, amount int64) error {
	if amount < 0 {
		return NewLedgerError(InvalidRequest)
	}
	account.Balance += amount
	return updateBalance(tx, account)
}

func updateBalance(tx *sql.Tx, account *models.Account) error {
	_, err := tx.Exec(`
		UPDATE accounts SET balance = $1, updated_at = NOW()
		WHERE id = $2`, account.Balance, account.ID)
	return err
}

func saveTransaction(tx *sql.Tx, transactionType, result string, account *models.Account, amount int64) (*models.Transaction, error) {
	record := &models.Transaction{
		TransactionType:   transactionType,
		TransactionResult: result,
		AccountID:         account.ID,
		Amount:            amount,
		BalanceSnapshot:   account.Balance,
		TransactionID:     newTransactionID(),
		TransactedAt:      time.Now(),
	}

	err := tx.QueryRow(`
		INSERT INTO transactions (transaction_type, transaction_result, account_id, amount, balance_snapshot, transaction_id, transacted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id`,
		record.TransactionType, record.TransactionResult, record.AccountID,
		record.Amount, record.BalanceSnapshot, record.TransactionID, record.TransactedAt).
		Scan(&record.ID)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func findTransactionTx(tx *sql.Tx, transactionID string) (*models.Transaction, error) {
	record := &models.Transaction{TransactionID: transactionID}
	err := tx.QueryRow(`
		SELECT id, account_id, amount, transacted_at
		FROM transactions
		WHERE transaction_id = $1`, transactionID).
		Scan(&record.ID, &record.AccountID, &record.Amount, &record.TransactedAt)
	if err == sql.ErrNoRows {
		return nil, NewLedgerError(TransactionNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// newTransactionID generates the external transaction id: a random UUID with
// the separators stripped, 32 hex characters.
func newTransactionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (ts *TransactionService) publishEvent(record *models.Transaction, accountNumber string) {
	if ts.redis == nil {
		return
	}

	event := models.TransactionEvent{
		TransactionID:   record.TransactionID,
		AccountNumber:   accountNumber,
		TransactionType: record.TransactionType,
		Amount:          record.Amount,
		BalanceSnapshot: record.BalanceSnapshot,
		TransactedAt:    record.TransactedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to marshal event for %s: %v", record.TransactionID, err)
		return
	}

	if err := ts.redis.RPush(context.Background(), transactionEventKey, data).Err(); err != nil {
		log.Printf("[TRANSACTION] Failed to queue event for %s: %v", record.TransactionID, err)
	}
}
