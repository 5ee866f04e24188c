package models

import "time"

// WagerKind names the kind of wager a refund is issued for
type WagerKind string

const (
	WagerKindBet   WagerKind = "bet"
	WagerKindQueue WagerKind = "queue"
	WagerKindMatch WagerKind = "match"
)

// RefundReason records which path triggered a refund
type RefundReason string

const (
	RefundReasonBetCancelled    RefundReason = "bet_cancelled"
	RefundReasonQueueLeft       RefundReason = "queue_left"
	RefundReasonPlayerCancelled RefundReason = "player_cancelled"
	RefundReasonStaleSweep      RefundReason = "stale_sweep"
	RefundReasonAdminRepair     RefundReason = "admin_repair"
)

// RefundReceipt is the persisted proof that a party got their money back for a wager.
// Its primary key (kind, wager, account) is what makes every refund path idempotent.
type RefundReceipt struct {
	WagerKind     WagerKind    `db:"wager_kind"`
	WagerID       string       `db:"wager_id"`
	AccountID     string       `db:"account_id"`
	Amount        int64        `db:"amount"`
	LedgerEntryID *int64       `db:"ledger_entry_id"`
	Reason        RefundReason `db:"reason"`
	CreatedAt     time.Time    `db:"created_at"`
}

// RefundResult summarises one orchestrated refund
type RefundResult struct {
	WagerKind WagerKind `json:"wagerKind"`
	WagerID   string    `json:"wagerId"`
	Refunded  []string  `json:"refunded"`
	Skipped   []string  `json:"skipped,omitempty"`
	Total     int64     `json:"total"`
}
