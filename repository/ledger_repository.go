package repository

import (
	"context"
	"fmt"

	"rpsarena/database"
	"rpsarena/models"
	"rpsarena/service"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the LedgerRepository interface. Entries are only ever
// inserted.
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Append inserts a ledger entry
func (r *LedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			account_id, kind, amount, fee, balance_before, balance_after,
			related_id, related_type, reference, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	err := r.q.QueryRow(ctx, query,
		entry.AccountID,
		entry.Kind,
		entry.Amount,
		entry.Fee,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.RelatedID,
		entry.RelatedType,
		entry.Reference,
		metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if isUniqueViolation(err) {
		return service.ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// ListByAccount returns the newest entries of an account first
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, account_id, kind, amount, fee, balance_before, balance_after,
		       related_id, related_type, reference, metadata, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.LedgerEntry, error) {
		var entry models.LedgerEntry
		err := row.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Kind,
			&entry.Amount,
			&entry.Fee,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.RelatedID,
			&entry.RelatedType,
			&entry.Reference,
			&entry.Metadata,
			&entry.CreatedAt,
		)
		return &entry, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entries: %w", err)
	}
	return entries, nil
}

// ExistsByReference reports whether a payment reference was already booked
func (r *LedgerRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE reference = $1)`,
		reference,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reference %s: %w", reference, err)
	}
	return exists, nil
}

// SumSignedEffects sums the balance effect of every entry of an account. Loss entries
// move nothing; bets and withdrawals take their fee with them.
func (r *LedgerRepository) SumSignedEffects(ctx context.Context, accountID string) (int64, int, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE
				WHEN kind IN ('recharge', 'win', 'refund') THEN amount
				WHEN kind IN ('bet', 'withdrawal') THEN -(amount + fee)
				ELSE 0
			END), 0)::BIGINT,
			COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1
	`

	var delta int64
	var count int
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&delta, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return delta, count, nil
}
