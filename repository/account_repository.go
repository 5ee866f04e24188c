package repository

import (
	"context"
	"errors"
	"fmt"

	"rpsarena/database"
	"rpsarena/models"
	"rpsarena/service"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `id, display_name, balance, initial_balance, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.DisplayName,
		&account.Balance,
		&account.InitialBalance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByID retrieves an account by id
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return account, nil
}

// GetByIDForUpdate retrieves an account and locks its row
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", id, err)
	}
	return account, nil
}

// Create opens an account. The initial balance is recorded so the ledger audit can
// explain every later movement.
func (r *AccountRepository) Create(ctx context.Context, id, displayName string, initialBalance int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, display_name, balance, initial_balance)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, id, displayName, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", id, err)
	}
	return account, nil
}

// AddBalance credits the account and returns the new balance
func (r *AccountRepository) AddBalance(ctx context.Context, id string, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, service.ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for account %s: %w", id, err)
	}
	return balance, nil
}

// DeductBalance debits the account only if it can cover amount
func (r *AccountRepository) DeductBalance(ctx context.Context, id string, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to deduct balance for account %s: %w", id, err)
	}

	// Nothing updated: either the account is missing or it cannot cover the debit
	account, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	if account == nil {
		return 0, service.ErrAccountNotFound
	}
	return 0, fmt.Errorf("%w: have %d, need %d", service.ErrInsufficientFunds, account.Balance, amount)
}
