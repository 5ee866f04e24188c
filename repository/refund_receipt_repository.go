package repository

import (
	"context"
	"fmt"

	"rpsarena/database"
	"rpsarena/models"
)

// RefundReceiptRepository implements the RefundReceiptRepository interface
type RefundReceiptRepository struct {
	q queryable
}

// NewRefundReceiptRepository creates a new refund receipt repository
func NewRefundReceiptRepository(db *database.DB) *RefundReceiptRepository {
	return &RefundReceiptRepository{q: db.Pool}
}

func newRefundReceiptRepositoryWithTx(tx queryable) *RefundReceiptRepository {
	return &RefundReceiptRepository{q: tx}
}

// Claim inserts the receipt. A conflicting primary key means the party was already
// refunded for this wager and nothing is written.
func (r *RefundReceiptRepository) Claim(ctx context.Context, receipt *models.RefundReceipt) (bool, error) {
	query := `
		INSERT INTO refund_receipts (wager_kind, wager_id, account_id, amount, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wager_kind, wager_id, account_id) DO NOTHING
		RETURNING created_at
	`

	rows, err := r.q.Query(ctx, query,
		receipt.WagerKind,
		receipt.WagerID,
		receipt.AccountID,
		receipt.Amount,
		receipt.Reason,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim refund receipt: %w", err)
	}
	defer rows.Close()

	claimed := false
	if rows.Next() {
		if err := rows.Scan(&receipt.CreatedAt); err != nil {
			return false, fmt.Errorf("failed to scan refund receipt: %w", err)
		}
		claimed = true
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to claim refund receipt: %w", err)
	}
	return claimed, nil
}

// AttachLedgerEntry links a claimed receipt to its refund entry
func (r *RefundReceiptRepository) AttachLedgerEntry(ctx context.Context, receipt *models.RefundReceipt, entryID int64) error {
	query := `
		UPDATE refund_receipts
		SET ledger_entry_id = $4
		WHERE wager_kind = $1 AND wager_id = $2 AND account_id = $3
	`

	_, err := r.q.Exec(ctx, query, receipt.WagerKind, receipt.WagerID, receipt.AccountID, entryID)
	if err != nil {
		return fmt.Errorf("failed to attach ledger entry to refund receipt: %w", err)
	}
	receipt.LedgerEntryID = &entryID
	return nil
}

// ListByWager returns every receipt issued for a wager
func (r *RefundReceiptRepository) ListByWager(ctx context.Context, kind models.WagerKind, wagerID string) ([]*models.RefundReceipt, error) {
	query := `
		SELECT wager_kind, wager_id, account_id, amount, ledger_entry_id, reason, created_at
		FROM refund_receipts
		WHERE wager_kind = $1 AND wager_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, kind, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query refund receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*models.RefundReceipt
	for rows.Next() {
		var receipt models.RefundReceipt
		err := rows.Scan(
			&receipt.WagerKind,
			&receipt.WagerID,
			&receipt.AccountID,
			&receipt.Amount,
			&receipt.LedgerEntryID,
			&receipt.Reason,
			&receipt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund receipt: %w", err)
		}
		receipts = append(receipts, &receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refund receipts: %w", err)
	}
	return receipts, nil
}
