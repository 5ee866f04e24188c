package repository

import (
	"context"
	"fmt"

	"rpsarena/database"
	"rpsarena/models"
)

// FeeRepository implements the FeeRepository interface
type FeeRepository struct {
	q queryable
}

// NewFeeRepository creates a new fee repository
func NewFeeRepository(db *database.DB) *FeeRepository {
	return &FeeRepository{q: db.Pool}
}

func newFeeRepositoryWithTx(tx queryable) *FeeRepository {
	return &FeeRepository{q: tx}
}

// Record logs a collected fee
func (r *FeeRepository) Record(ctx context.Context, fee *models.FeeEntry) error {
	query := `
		INSERT INTO fee_entries (account_id, amount, source, related_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, fee.AccountID, fee.Amount, fee.Source, fee.RelatedID).
		Scan(&fee.ID, &fee.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record fee: %w", err)
	}
	return nil
}

// TotalCollected sums every fee ever logged
func (r *FeeRepository) TotalCollected(ctx context.Context) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM fee_entries`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum fees: %w", err)
	}
	return total, nil
}
