package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/bankbook/backend/internal/audit"
	"github.com/bankbook/backend/internal/models"
)

const (
	maxAccountsPerUser = 10
	firstAccountNumber = "1000000000"
	// account numbers are a fixed-width 10-digit field; creation fails once
	// the space is exhausted
	maxAccountNumber = int64(9999999999)
)

type AccountService struct {
	db        *sql.DB
	validator *ValidationHelper
	audit     *audit.Logger
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{
		db:        db,
		validator: NewValidationHelper(),
		audit:     audit.NewLogger(),
	}
}

// OpenAccount creates a new account for a user
// @Summary Open a new account
// @Description Open a new account for a user with an initial balance
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body models.OpenAccountRequest true "Account open request"
// @Success 201 {object} models.OpenAccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts [post]
func (s *AccountService) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req models.OpenAccountRequest

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

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := s.openAccount(req.UserID, req.InitialBalance)
	if err != nil {
		log.Printf("[ACCOUNT] Open failed for user %d: %v", req.UserID, err)
		WriteDomainError(w, err)
		return
	}

	log.Printf("[ACCOUNT] Opened account %s for user %d", account.AccountNumber, account.UserID)
	s.audit.LogAccountChange(account.AccountNumber, "ACCOUNT_OPEN", fmt.Sprintf("initial balance: %d", account.Balance))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.OpenAccountResponse{
		UserID:        account.UserID,
		AccountNumber: account.AccountNumber,
		RegisteredAt:  account.RegisteredAt,
	})
}

// CloseAccount closes an existing account
// @Summary Close an account
// @Description Close an account owned by the user; balance must be zero
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body models.CloseAccountRequest true "Account close request"
// @Success 200 {object} models.CloseAccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts [delete]
func (s *AccountService) CloseAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CloseAccountRequest

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

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := s.closeAccount(req.UserID, req.AccountNumber)
	if err != nil {
		log.Printf("[ACCOUNT] Close failed for account %s: %v", req.AccountNumber, err)
		WriteDomainError(w, err)
		return
	}

	log.Printf("[ACCOUNT] Closed account %s for user %d", account.AccountNumber, account.UserID)
	s.audit.LogAccountChange(account.AccountNumber, "ACCOUNT_CLOSE", "account unregistered")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CloseAccountResponse{
		UserID:         account.UserID,
		AccountNumber:  account.AccountNumber,
		UnregisteredAt: *account.UnregisteredAt,
	})
}

// ListAccounts lists all accounts owned by a user
// @Summary List user accounts
// @Description Get all accounts owned by a user with their balances
// @Tags accounts
// @Produce json
// @Param user_id query int true "User ID"
// @Success 200 {array} models.AccountSummary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts [get]
func (s *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID < 1 {
		SendErrorResponse(w, "user_id is required", http.StatusBadRequest, nil)
		return
	}

	accounts, err := s.listAccounts(userID)
	if err != nil {
		log.Printf("[ACCOUNT] List failed for user %d: %v", userID, err)
		WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// openAccount creates an account inside one storage transaction: the user must
// exist, the per-user cap must not be hit, and the new number is one greater
// than the numerically highest existing number.
func (s *AccountService) openAccount(userID, initialBalance int64) (*models.Account, error) {
	if initialBalance < 0 {
		return nil, NewLedgerError(InvalidRequest)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := findUserTx(tx, userID); err != nil {
		return nil, err
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM accounts WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, err
	}
	if count >= maxAccountsPerUser {
		return nil, NewLedgerError(MaxAccountsExceeded)
	}

	number, err := nextAccountNumber(tx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account := &models.Account{
		UserID:        userID,
		AccountNumber: number,
		Status:        models.AccountStatusActive,
		Balance:       initialBalance,
		RegisteredAt:  now,
	}

	err = tx.QueryRow(`
		INSERT INTO accounts (user_id, account_number, status, balance, registered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`,
		userID, number, account.Status, initialBalance, now).Scan(&account.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *AccountService) closeAccount(userID int64, accountNumber string) (*models.Account, error) {
	tx, err := s.db.Begin()
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
	if account.Status == models.AccountStatusClosed {
		return nil, NewLedgerError(AccountAlreadyClosed)
	}
	if account.Balance != 0 {
		return nil, NewLedgerError(BalanceNotEmpty)
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE accounts
		SET status = $1, unregistered_at = $2, updated_at = NOW()
		WHERE id = $3`,
		models.AccountStatusClosed, now, account.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	account.Status = models.AccountStatusClosed
	account.UnregisteredAt = &now
	return account, nil
}

func (s *AccountService) listAccounts(userID int64) ([]models.AccountSummary, error) {
	if err := findUser(s.db, userID); err != nil {
		return nil, err
	}

	// insertion order, not re-sorted
	rows, err := s.db.Query(`
		SELECT account_number, balance FROM accounts
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.AccountSummary{}
	for rows.Next() {
		var a models.AccountSummary
		if err := rows.Scan(&a.AccountNumber, &a.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// nextAccountNumber computes the next number by numeric parse-and-increment of
// the highest existing number; string append would break past "9999999999".
func nextAccountNumber(tx *sql.Tx) (string, error) {
	var highest string
	err := tx.QueryRow(`SELECT account_number FROM accounts ORDER BY account_number::bigint DESC LIMIT 1`).Scan(&highest)
	if err == sql.ErrNoRows {
		return firstAccountNumber, nil
	}
	if err != nil {
		return "", err
	}

	n, err := strconv.ParseInt(highest, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed account number %q: %w", highest, err)
	}
	if n >= maxAccountNumber {
		return "", NewLedgerError(InvalidRequest)
	}

	return fmt.Sprintf("%010d", n+1), nil
}

type userQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func findUser(q userQuerier, userID int64) error {
	var id int64
	err := q.QueryRow(`SELECT id FROM users WHERE id = $1`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return NewLedgerError(UserNotFound)
	}
	return err
}

func findUserTx(tx *sql.Tx, userID int64) error {
	return findUser(tx, userID)
}

// lockAccountByNumber resolves an account by its external number and takes a
// row lock so the balance mutation and the transaction record commit against
// the same snapshot.
func lockAccountByNumber(tx *sql.Tx, accountNumber string) (*models.Account, error) {
	account := &models.Account{AccountNumber: accountNumber}
	err := tx.QueryRow(`
		SELECT id, user_id, status, balance, registered_at
		FROM accounts
		WHERE account_number = $1
		FOR UPDATE`, accountNumber).
		Scan(&account.ID, &account.UserID, &account.Status, &account.Balance, &account.RegisteredAt)
	if err == sql.ErrNoRows {
		return nil, NewLedgerError(AccountNotFound)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
